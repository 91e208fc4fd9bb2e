package network

const (
	MsgTypeHeartbeat = 1
	MsgTypeHello     = 2

	MsgTypeJoinGame      = 101
	MsgTypeStartGame     = 102
	MsgTypeElectLeader   = 103
	MsgTypeSelectHostage = 104
	MsgTypeAdvanceRound  = 105
	MsgTypeRevealRole    = 106

	MsgTypeStateSync  = 301
	MsgTypeRosterSync = 302

	MsgTypeError = 401
)
