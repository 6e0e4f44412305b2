package model

// NoticeLevel distinguishes informational notices from failures.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a user-visible message produced by a dashboard action.
type Notice struct {
	Level   NoticeLevel
	Message string
}
