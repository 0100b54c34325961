package model

// Source is the provenance tag on every health record.
type Source string

const (
	SourceManual Source = "manual"
	SourceFitbit Source = "fitbit"
	SourceOther  Source = "other"
)

// External reports whether records with this provenance were imported
// from the provider and are therefore read-only to users.
func (s Source) External() bool {
	return s == SourceFitbit
}
