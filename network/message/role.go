package message

import "strings"

// MsgReqType is the role of a message type, derived from its name.
type MsgReqType int

const (
	// MRTNone indicates a name that follows none of the role conventions.
	MRTNone MsgReqType = iota
	// MRTReq is a request that expects a response.
	MRTReq
	// MRTRes is a response to a request. Responses always carry a status field.
	MRTRes
	// MRTNtf is a fire-and-forget notification.
	MRTNtf
	// MRTShared is a shared schema embedded in other messages and never routed on its own.
	MRTShared
)

// Naming conventions for message type names.
const (
	SuffixRequest  = "Request"
	SuffixResponse = "Response"
	SuffixNotify   = "Notify"
	SuffixPacket   = "Packet"

	// SharedPrefix marks a shared schema type.
	SharedPrefix = "_"
)

// ReqTypeOf classifies a message type name. Suffixes take priority over the
// shared-schema prefix, in the order Request, Response, Notify.
func ReqTypeOf(name string) MsgReqType {
	switch {
	case strings.HasSuffix(name, SuffixRequest):
		return MRTReq
	case strings.HasSuffix(name, SuffixResponse):
		return MRTRes
	case strings.HasSuffix(name, SuffixNotify):
		return MRTNtf
	case strings.HasPrefix(name, SharedPrefix):
		return MRTShared
	default:
		return MRTNone
	}
}

func (t MsgReqType) String() string {
	switch t {
	case MRTReq:
		return "Request"
	case MRTRes:
		return "Response"
	case MRTNtf:
		return "Notify"
	case MRTShared:
		return "Shared"
	default:
		return "None"
	}
}
