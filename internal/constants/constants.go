package constants

import "time"

const (
	BaseRating         = 1500
	ProvisionalMatches = 10
	KStandard          = 20
	KProvisional       = 40
	SoloVsTeamBonus    = 50
	TeamLossK          = 40
	UpsetBonus         = 10

	InactivityDecayPerWeek = 10
	MinRatingFloor         = 100

	TopSnapshotN    = 3
	SoftResetFactor = 0.8
)

const (
	RematchWindow = 1 * time.Hour

	MonthlyResetHour       = 0 // midnight UTC
	DefaultMaintenanceTick = 1 * time.Hour
)

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	ShutdownTimeout = 5 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	DefaultLeaderboardN = 10
	MaxLeaderboardN     = 100
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
)
