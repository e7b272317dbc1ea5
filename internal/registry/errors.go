package registry

import "errors"

var (
	// ErrPersonNotFound signals an unknown person ID.
	ErrPersonNotFound = errors.New("person not found")

	// ErrNoFaceDetected signals that the face detector found zero faces in
	// an enrollment image. Nothing is persisted in that case.
	ErrNoFaceDetected = errors.New("no face detected in image")

	// ErrInvalidName signals an empty or blank display name.
	ErrInvalidName = errors.New("display name must not be empty")
)
