package ws

const (
	// client - server
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
	MsgPing        = "ping"

	// server - client
	MsgReady      = "ready"
	MsgSubscribed = "subscribed"
	MsgAdded      = "added"
	MsgChanged    = "changed"
	MsgRemoved    = "removed"
	MsgPong       = "pong"
	MsgError      = "error"
)

const (
	TopicList   = "tasks.list"
	TopicDetail = "tasks.detail"
	TopicRecent = "tasks.recent"
)
