// Package rcc is the remote command channel: it runs shell payloads on pod
// nodes and separates channel failures (could not reach or authenticate to
// the host) from payload failures (the command ran and exited non-zero).
package rcc

import "context"

// Channel status codes. A payload exit code is only meaningful when the
// channel code is ChannelSuccess.
const (
	ChannelSuccess     = 0
	ChannelConnectFail = 1
	ChannelExecuteFail = 2
)

// PayloadSuccess is the exit code of a payload that ran and succeeded.
const PayloadSuccess = 0

// Result is the outcome of one payload execution.
type Result struct {
	// ChannelCode reports whether the payload could be delivered at all.
	ChannelCode int

	// PayloadCode is the remote exit code. It is meaningless unless
	// ChannelCode is ChannelSuccess.
	PayloadCode int

	Stdout string
	Stderr string

	// Err carries the channel-level error, nil on ChannelSuccess.
	Err error
}

// Delivered reports whether the payload reached the host and ran.
func (r Result) Delivered() bool {
	return r.ChannelCode == ChannelSuccess
}

// OK reports whether the payload ran and exited zero.
func (r Result) OK() bool {
	return r.Delivered() && r.PayloadCode == PayloadSuccess
}

// Runner executes one payload on one host.
type Runner interface {
	Run(ctx context.Context, host, payload string) Result
}
