package video

const (
	msgStatusConflictFmt    = "video cannot move from %s to %s"
	msgNotAwaitingApproval  = "video is not awaiting approval"
	msgKeyOutOfScope        = "key is outside the video's storage scope"
	msgPresignPlaybackError = "failed to sign playback url"
	msgPresignReplaceError  = "failed to sign replacement upload"
)
