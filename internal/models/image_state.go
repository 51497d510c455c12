package models

// ImagePhase is the lifecycle phase of a record's resolved image.
type ImagePhase string

const (
	// ImageLoading means no resolution pass has completed yet.
	ImageLoading ImagePhase = "Loading"
	// ImageResolved means a display URL has been committed.
	ImageResolved ImagePhase = "Resolved"
	// ImageRetrying means a render failure was reported and a fresh pass
	// is pending or under way.
	ImageRetrying ImagePhase = "Retrying"
	// ImageUnavailable is terminal: the retry ceiling was hit and the
	// record is frozen at the unavailable placeholder.
	ImageUnavailable ImagePhase = "Unavailable"
)

// ImageState is the per-record resolved-image state handed to the display
// layer. It is ephemeral; nothing is cached across sessions.
type ImageState struct {
	RecordID   string     `json:"record_id"`
	Phase      ImagePhase `json:"phase"`
	CurrentURL string     `json:"current_url"`
	Attempts   int        `json:"attempts"`
}
