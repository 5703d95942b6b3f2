// Package codec translates between wire messages and normalized requests.
//
// Three inbound shapes are accepted:
//
//	array   ["echo", "7", "0", "hi"]            memberName, callbackId, objectId, args...
//	object  {"cmd":"getProperty", "type":"postMessageToExtension", "objectId":0, "name":"prefix", "args":[]}
//	binary  [u32 nameLen][name][u32 callbackId][u32 objectIdLen][objectId][payload]
//
// Parse sniffs the first significant character of a text message; binary
// messages go through ParseBinary. Object-form messages routed to a class or
// object keep the routing discriminator as the request name and carry the
// original member name and arguments as a [memberName, args] pair, which
// SplitRouted unpacks.
//
// Outbound, EncodeReply builds array-form replies, Marshal renders the
// object-form notifications (InvokeCallback, DispatchEvent, UpdateProperty,
// OnEvent, LogMessage) and Normalize turns native results into values that
// encoding/json can render.
package codec
