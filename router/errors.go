package router

import (
	"errors"

	"github.com/deeppavlov/convai-router-bot/messenger"
	"github.com/deeppavlov/convai-router-bot/queue"
)

var (
	// ErrNoEligibleProfile means no profile passed the tag gate with an
	// assignable instance, so the inbound message was not delivered.
	ErrNoEligibleProfile = errors.New("router: no eligible profile")

	// ErrUnknownTarget means a reply referenced a chat whose session no
	// longer exists (typically expired). The reply is dropped.
	ErrUnknownTarget = errors.New("router: unknown target")

	// ErrUnknownInstance means no registered instance matches the token.
	ErrUnknownInstance = errors.New("router: unknown instance token")
)

// Re-exported so callers handle the full taxonomy through one package.
var (
	ErrInstanceBusy   = queue.ErrInstanceBusy
	ErrDeliveryFailed = messenger.ErrDeliveryFailed
)
