package youtube

import "errors"

// ErrPageUnparsable means the page came back fine but the expected
// token was not in it, usually a sign of a markup change upstream.
var ErrPageUnparsable = errors.New("page unparsable")
