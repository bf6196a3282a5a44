package drafts

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/sqids/sqids-go"

	"github.com/debemdeboas/draftdesk/internal/model"
)

var (
	idOnce    sync.Once
	idEncoder *sqids.Sqids
)

func suffixEncoder() *sqids.Sqids {
	idOnce.Do(func() {
		s, err := sqids.New(sqids.Options{MinLength: 6})
		if err != nil {
			draftsLogger.Error().Err(err).Msg("Failed to initialize draft id encoder")
			return
		}
		idEncoder = s
	})
	return idEncoder
}

// NewID returns "<unix millis>-<random suffix>".
func NewID(now time.Time) model.DraftID {
	n := uint64(rand.Uint32())

	suffix := ""
	if enc := suffixEncoder(); enc != nil {
		if s, err := enc.Encode([]uint64{n}); err == nil {
			suffix = s
		}
	}
	if suffix == "" {
		suffix = strconv.FormatUint(n, 36)
	}

	return model.DraftID(fmt.Sprintf("%d-%s", now.UnixMilli(), suffix))
}
