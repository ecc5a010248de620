package model

type Action int

const (
	DefaultAction Action = iota
	ExpectingAccountName
	ExpectingPositionInput
	ExpectingDebtPositionID
)

type Session struct {
	Action    Action
	AccountID string
}
