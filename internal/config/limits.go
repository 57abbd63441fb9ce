package config

const (
	// MaxFrameAnalysisChars is the truncation limit for a chapter summary
	// built from its first segment's description. Keeps generated chapter
	// summaries scannable in the tree view.
	MaxFrameAnalysisChars = 100

	// MaxOverviewChars is the truncation limit for the whole-video
	// overview assembled from the leading segment descriptions.
	MaxOverviewChars = 200

	// OverviewSegmentCount is how many leading segments contribute to the
	// overview.
	OverviewSegmentCount = 3

	// ClipFPS is the sampling rate annotated on every injected video clip.
	ClipFPS = 1

	// ArtifactVideoName is the fixed logical name under which the uploaded
	// video is stored for a session. Every context-injection hook loads
	// the artifact by this name.
	ArtifactVideoName = "uploaded_video"

	// VideoMIMEType is the MIME type assumed for uploaded video bytes.
	VideoMIMEType = "video/mp4"
)
