package stream

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/zeebo/xxh3"
)

var anonSeq uint64

// anonymousPath builds a collision-resistant path for an anonymous stream
// under dir, named STREAM_<hash> per the on-disk naming contract. The hash
// mixes the process id, a monotonic in-process counter, and the current
// time, so concurrent processes sharing dir cannot collide.
func anonymousPath(dir string) string {
	seq := atomic.AddUint64(&anonSeq, 1)
	seed := fmt.Sprintf("%d-%d-%d", os.Getpid(), time.Now().UnixNano(), seq)
	sum := xxh3.HashString(seed)
	return filepath.Join(dir, fmt.Sprintf("STREAM_%016x", sum))
}
