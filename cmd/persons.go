package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/spf13/cobra"
)

var personsCmd = &cobra.Command{
	Use:   "persons",
	Short: "List enrolled persons",
	Long:  `List all enrolled persons with their sample counts.`,
	RunE:  runPersons,
}

func init() {
	rootCmd.AddCommand(personsCmd)
}

func runPersons(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := openStores(cfg, false)
	if err != nil {
		return err
	}
	defer st.close()

	persons, err := st.persons.ListPersons(context.Background())
	if err != nil {
		return fmt.Errorf("listing persons: %w", err)
	}

	if len(persons) == 0 {
		fmt.Println("No persons enrolled yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSAMPLES\tENROLLED")
	for _, p := range persons {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			p.PersonID, p.DisplayName, p.SampleCount, p.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
