package storage

import (
	"time"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
)

// WorldMeta records the parameters a data dir was generated with.
type WorldMeta struct {
	Generation gen.Config `json:"generation"`
	CreatedAt  time.Time  `json:"created_at"`
}
