package handler

const (
	msgContentTypeJSONRequired = "content type must be application/json"
	msgInvalidRequestBody      = "invalid request body"
	msgInvalidTeamID           = "invalid teamId"
	msgInvalidUserID           = "invalid userId"
	msgInvalidInviteID         = "invalid invite id"
	msgInvalidPagination       = "limit and offset must be non-negative integers"
	msgStreamingUnsupported    = "streaming unsupported"
	msgPasswordResetRequested  = "if the account exists, a reset link has been sent"
	msgPasswordUpdated         = "password updated"
	msgUploadCancelled         = "upload cancelled"
	msgInviteDeclined          = "invite declined"
	msgLeftTeam                = "left team"
	msgMemberRemoved           = "member removed"
	msgVideoDeleted            = "video deleted"
)

const (
	paramTeamID = "teamId"
	paramUserID = "userId"

	queryTeamID = "teamId"
	queryLimit  = "limit"
	queryOffset = "offset"

	jsonKeyMessage = "message"
)
