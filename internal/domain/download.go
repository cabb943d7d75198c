package domain

// Download records a completed transfer. At most one exists per video
// id; the record is created only once the transfer finished.
type Download struct {
	VideoID       string
	RemoteURL     string
	LocalFileName string
}

// DownloadState is the per-video position in the download lifecycle.
type DownloadState string

const (
	DownloadAbsent   DownloadState = "absent"
	DownloadInFlight DownloadState = "downloading"
	DownloadComplete DownloadState = "downloaded"
)
