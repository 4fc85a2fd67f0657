package types

// DownloadStatus represents the state of a download as reported by the remote service
type DownloadStatus string

const (
	DownloadStatusPending     DownloadStatus = "pending"
	DownloadStatusDownloading DownloadStatus = "downloading"
	DownloadStatusCompleted   DownloadStatus = "completed"
	DownloadStatusFailed      DownloadStatus = "failed"
)

// IsTerminal reports whether no further updates can follow this status
func (s DownloadStatus) IsTerminal() bool {
	return s == DownloadStatusCompleted || s == DownloadStatusFailed
}

// DownloadProgress is a snapshot of a progress line
type DownloadProgress struct {
	Status  DownloadStatus `json:"status"`
	Message string         `json:"message"`
	Percent *float64       `json:"percent"`
	ETA     *string        `json:"eta"`
	Speed   *string        `json:"speed"`
}

// DownloadResponse is the result of a synchronous download
type DownloadResponse struct {
	Status      DownloadStatus    `json:"status"`
	DownloadURL *string           `json:"download_url"`
	Filename    *string           `json:"filename"`
	Message     string            `json:"message"`
	Progress    *DownloadProgress `json:"progress"`
}
