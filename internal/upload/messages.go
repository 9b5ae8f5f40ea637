package upload

const (
	msgNotTeamMember        = "you are not a member of this team"
	msgCreateUploadFailed   = "failed to start multipart upload"
	msgSignPartFailed       = "failed to sign upload part"
	msgCompleteUploadFailed = "failed to complete multipart upload"
	msgUploadNotFound       = "upload not found"
	msgVideoNotFound        = "no video is tracked for this key"
	msgPartsRequired        = "at least one part is required"
	msgPartETagRequired     = "every part needs an etag"
)
