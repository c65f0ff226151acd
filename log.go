package listsync

// Logging convention in the `listsync` package:
// Info:
//     essential events for abnormal behavior. This level should be silent on normal operation,
//     with the exception of one time (infrequent) initialization data that is useful for monitoring
//     this includes:
//     - channel connect and auth failures
//     - dropped outbound events and unknown inbound event types
//     - abnormal exits
// Error:
//     unrecoverable crash details
//     this includes:
//     - unexpected panics even if handled and suppressed for partial operation
// Debug (glog.V(2)):
//     key events for trace debugging
//     this includes:
//     - per message channel send/receive, keyed by list id and item id
//     - merge decisions in the synchronization engine
//
// channel errors are logged only. They are never surfaced to the user
// and never crash the view.
