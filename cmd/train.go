package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/matcher"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the recognition model from enrolled samples",
	Long: `Train builds a fresh recognition model from all enrolled face
samples and prints its stats. The serve command trains automatically; this
command exists to validate the enrollment data from the terminal.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := openStores(cfg, false)
	if err != nil {
		return err
	}
	defer st.close()

	ctx := context.Background()

	if err := st.persons.CheckIntegrity(ctx); err != nil {
		return fmt.Errorf("store integrity check failed: %w", err)
	}

	persons, err := st.persons.ListPersons(ctx)
	if err != nil {
		return fmt.Errorf("listing persons: %w", err)
	}
	if len(persons) == 0 {
		fmt.Println("No persons enrolled yet; nothing to train")
		return nil
	}

	bar := progressbar.NewOptions(len(persons),
		progressbar.OptionSetDescription("Collecting samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("persons"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var set matcher.TrainingSet
	for _, p := range persons {
		samples, err := st.persons.GetSamples(ctx, p.PersonID)
		if err != nil {
			return fmt.Errorf("loading samples for %s: %w", p.PersonID, err)
		}
		for _, s := range samples {
			set.Encodings = append(set.Encodings, s.Encoding)
			set.Labels = append(set.Labels, p.PersonID)
			set.Names = append(set.Names, p.DisplayName)
		}
		bar.Add(1)
	}
	fmt.Println()

	model, err := matcher.Train(set, cfg.MatchTolerance())
	if err != nil {
		return fmt.Errorf("training model: %w", err)
	}

	if !model.Trained() {
		fmt.Println("All persons have zero samples; model is empty")
		return nil
	}

	fmt.Printf("Trained model v%d: %d encodings, %d persons (tolerance %.2f)\n",
		model.Version(), model.Size(), model.Persons(), model.Tolerance())
	return nil
}
