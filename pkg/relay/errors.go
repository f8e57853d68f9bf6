package relay

import (
	"errors"
)

// Kind classifies relay failures for callers and metrics. Auth and
// policy kinds are surfaced generically; credential kinds are opaque by
// design so a denial can't be turned into an enumeration oracle.
type Kind string

const (
	KindUntrustedOrigin   Kind = "UntrustedOrigin"
	KindMalformedEnvelope Kind = "MalformedEnvelope"
	KindOutOfScope        Kind = "OutOfScope"
	KindAssumeRoleDenied  Kind = "AssumeRoleDenied"
	KindCredentialTimeout Kind = "CredentialTimeout"
	KindDispatchFailed    Kind = "DispatchFailed"
	KindDispatchTimeout   Kind = "DispatchTimeout"
)

// ErrDispatchTimeout marks a downstream call that exceeded its budget.
// Dispatchers wrap their timeout failures with it.
var ErrDispatchTimeout = errors.New("dispatch timed out")
