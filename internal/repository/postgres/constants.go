package postgres

import (
	"fmt"
	"time"
)

const (
	poolHealthCheckPeriod = time.Minute
	poolMaxConnLifetime   = time.Hour
	poolMaxConnIdleTime   = 30 * time.Minute
	dbPingTimeout         = 5 * time.Second

	defaultVideoListLimit = 50
	maxVideoListLimit     = 200

	errUserNotFound        = "user not found"
	errTeamNotFound        = "team not found"
	errMemberNotFound      = "member not found"
	errInviteNotFound      = "invite not found"
	errVideoNotFound       = "video not found"
	errLockNotFound        = "upload lock not found"
	errResetTokenNotFound  = "reset token not found"
	errAlreadyMember       = "user is already a member of this team"
	errOwnerCannotJoin     = "team owner cannot join their own team"
	errVideoKeyExists      = "an object with this key is already tracked"
	errInviteAlreadyExists = "a pending invite for this email already exists"

	errFailedParseDatabaseConfigFmt  = "failed to parse database config: %w"
	errFailedCreateConnectionPoolFmt = "failed to create connection pool: %w"
	errFailedPingDatabaseFmt         = "failed to ping database: %w"

	errFailedStartTransactionFmt  = "failed to start transaction: %w"
	errFailedCommitTransactionFmt = "failed to commit transaction: %w"

	errFailedCreateUserFmt = "failed to create user: %w"
	errFailedGetUserFmt    = "failed to get user: %w"

	errFailedCreateTeamFmt     = "failed to create team: %w"
	errFailedGetTeamFmt        = "failed to get team: %w"
	errFailedListTeamsFmt      = "failed to list teams: %w"
	errFailedScanTeamFmt       = "failed to scan team: %w"
	errFailedAddMemberFmt      = "failed to add member: %w"
	errFailedGetMemberFmt      = "failed to get member: %w"
	errFailedListMembersFmt    = "failed to list members: %w"
	errFailedScanMemberFmt     = "failed to scan member: %w"
	errFailedUpdateMemberFmt   = "failed to update member: %w"
	errFailedRemoveMemberFmt   = "failed to remove member: %w"
	errFailedCreateInviteFmt   = "failed to create invite: %w"
	errFailedGetInviteFmt      = "failed to get invite: %w"
	errFailedListInvitesFmt    = "failed to list invites: %w"
	errFailedScanInviteFmt     = "failed to scan invite: %w"
	errFailedUpdateInviteFmt   = "failed to update invite: %w"
	errFailedAcceptInviteFmt   = "failed to accept invite: %w"
	errFailedActivateMemberFmt = "failed to activate member: %w"

	errFailedCreateVideoFmt    = "failed to create video: %w"
	errFailedGetVideoFmt       = "failed to get video: %w"
	errFailedListVideosFmt     = "failed to list videos: %w"
	errFailedScanVideoFmt      = "failed to scan video: %w"
	errFailedUpdateVideoFmt    = "failed to update video: %w"
	errFailedDeleteVideoFmt    = "failed to delete video: %w"
	errFailedMarkUploadedFmt   = "failed to mark video uploaded: %w"
	errFailedReplaceVideoFmt   = "failed to replace video file: %w"
	errFailedMarshalLockFmt    = "failed to encode lock metadata: %w"
	errFailedCreateLockFmt     = "failed to create upload lock: %w"
	errFailedGetLockFmt        = "failed to get upload lock: %w"
	errFailedScanLockFmt       = "failed to scan upload lock: %w"
	errFailedDeleteLocksFmt    = "failed to delete upload locks: %w"
	errFailedCreateResetFmt    = "failed to create reset token: %w"
	errFailedGetResetFmt       = "failed to get reset token: %w"
	errFailedConsumeResetFmt   = "failed to consume reset token: %w"
	errFailedUpdatePasswordFmt = "failed to update password: %w"
)

var (
	errFailedAcceptInvite         = func(err error) error { return fmt.Errorf(errFailedAcceptInviteFmt, err) }
	errFailedActivateMember       = func(err error) error { return fmt.Errorf(errFailedActivateMemberFmt, err) }
	errFailedAddMember            = func(err error) error { return fmt.Errorf(errFailedAddMemberFmt, err) }
	errFailedCommitTransaction    = func(err error) error { return fmt.Errorf(errFailedCommitTransactionFmt, err) }
	errFailedConsumeReset         = func(err error) error { return fmt.Errorf(errFailedConsumeResetFmt, err) }
	errFailedCreateConnectionPool = func(err error) error { return fmt.Errorf(errFailedCreateConnectionPoolFmt, err) }
	errFailedCreateInvite         = func(err error) error { return fmt.Errorf(errFailedCreateInviteFmt, err) }
	errFailedCreateLock           = func(err error) error { return fmt.Errorf(errFailedCreateLockFmt, err) }
	errFailedCreateReset          = func(err error) error { return fmt.Errorf(errFailedCreateResetFmt, err) }
	errFailedCreateTeam           = func(err error) error { return fmt.Errorf(errFailedCreateTeamFmt, err) }
	errFailedCreateUser           = func(err error) error { return fmt.Errorf(errFailedCreateUserFmt, err) }
	errFailedCreateVideo          = func(err error) error { return fmt.Errorf(errFailedCreateVideoFmt, err) }
	errFailedDeleteLocks          = func(err error) error { return fmt.Errorf(errFailedDeleteLocksFmt, err) }
	errFailedDeleteVideo          = func(err error) error { return fmt.Errorf(errFailedDeleteVideoFmt, err) }
	errFailedGetInvite            = func(err error) error { return fmt.Errorf(errFailedGetInviteFmt, err) }
	errFailedGetLock              = func(err error) error { return fmt.Errorf(errFailedGetLockFmt, err) }
	errFailedGetMember            = func(err error) error { return fmt.Errorf(errFailedGetMemberFmt, err) }
	errFailedGetReset             = func(err error) error { return fmt.Errorf(errFailedGetResetFmt, err) }
	errFailedGetTeam              = func(err error) error { return fmt.Errorf(errFailedGetTeamFmt, err) }
	errFailedGetUser              = func(err error) error { return fmt.Errorf(errFailedGetUserFmt, err) }
	errFailedGetVideo             = func(err error) error { return fmt.Errorf(errFailedGetVideoFmt, err) }
	errFailedListInvites          = func(err error) error { return fmt.Errorf(errFailedListInvitesFmt, err) }
	errFailedListMembers          = func(err error) error { return fmt.Errorf(errFailedListMembersFmt, err) }
	errFailedListTeams            = func(err error) error { return fmt.Errorf(errFailedListTeamsFmt, err) }
	errFailedListVideos           = func(err error) error { return fmt.Errorf(errFailedListVideosFmt, err) }
	errFailedMarkUploaded         = func(err error) error { return fmt.Errorf(errFailedMarkUploadedFmt, err) }
	errFailedMarshalLock          = func(err error) error { return fmt.Errorf(errFailedMarshalLockFmt, err) }
	errFailedParseDatabaseConfig  = func(err error) error { return fmt.Errorf(errFailedParseDatabaseConfigFmt, err) }
	errFailedPingDatabase         = func(err error) error { return fmt.Errorf(errFailedPingDatabaseFmt, err) }
	errFailedRemoveMember         = func(err error) error { return fmt.Errorf(errFailedRemoveMemberFmt, err) }
	errFailedReplaceVideo         = func(err error) error { return fmt.Errorf(errFailedReplaceVideoFmt, err) }
	errFailedScanInvite           = func(err error) error { return fmt.Errorf(errFailedScanInviteFmt, err) }
	errFailedScanLock             = func(err error) error { return fmt.Errorf(errFailedScanLockFmt, err) }
	errFailedScanMember           = func(err error) error { return fmt.Errorf(errFailedScanMemberFmt, err) }
	errFailedScanTeam             = func(err error) error { return fmt.Errorf(errFailedScanTeamFmt, err) }
	errFailedScanVideo            = func(err error) error { return fmt.Errorf(errFailedScanVideoFmt, err) }
	errFailedStartTransaction     = func(err error) error { return fmt.Errorf(errFailedStartTransactionFmt, err) }
	errFailedUpdateInvite         = func(err error) error { return fmt.Errorf(errFailedUpdateInviteFmt, err) }
	errFailedUpdateMember         = func(err error) error { return fmt.Errorf(errFailedUpdateMemberFmt, err) }
	errFailedUpdatePassword       = func(err error) error { return fmt.Errorf(errFailedUpdatePasswordFmt, err) }
	errFailedUpdateVideo          = func(err error) error { return fmt.Errorf(errFailedUpdateVideoFmt, err) }
)
