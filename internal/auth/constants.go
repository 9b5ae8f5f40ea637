package auth

const (
	ContextKeyUserID   = "user_id"
	ContextKeyEmail    = "user_email"
	ContextKeyTeamID   = "team_id"
	ContextKeyTeamRole = "team_role"
	ContextKeyVideo    = "video"

	headerAuthorization = "Authorization"
	queryAccessToken    = "access_token"

	paramTeamID  = "teamId"
	paramVideoID = "id"

	bearerScheme    = "bearer"
	authHeaderParts = 2
	jwtIssuer       = "uplora"
)

const (
	msgMissingAuthorization    = "missing authorization token"
	msgInvalidOrExpiredToken   = "invalid or expired token"
	msgUserNotAuthenticated    = "user not authenticated"
	msgInvalidUserIDCtx        = "invalid user ID in context"
	msgTeamIDRequired          = "teamId is required"
	msgInvalidTeamID           = "invalid teamId"
	msgVideoIDRequired         = "video id is required"
	msgInvalidVideoID          = "invalid video id"
	msgVideoNotInContext       = "video not resolved for this route"
	msgUnexpectedSigningMethod = "unexpected signing method: %v"
	msgTokenParseFailed        = "failed to parse token: %w"
	msgInvalidTokenClaims      = "invalid token claims"
)
