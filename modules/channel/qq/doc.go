// Package qq implements the QQ channel for qqrelay, speaking the OneBot 11
// HTTP protocol exposed by NapCat.
//
// Inbound events arrive on a webhook mounted through the gateway's webhook
// dispatcher. Each request is acknowledged immediately; the event is then
// scheduled on the shared per-conversation queue so that events of one
// conversation are handled strictly in arrival order:
//
//   - WebhookReceiver parses the event and enqueues it under its
//     conversation key (group id or sender id)
//   - EventHandler runs the ordered gates, normalizes the message text,
//     routes the conversation, records the session and dispatches a reply
//   - Client delivers replies through send_group_msg / send_private_msg
//
// The module registers itself as "channel.qq" via init() and supports live
// configuration reload.
package qq
