package games

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
)

// DeriveSeed turns a message id into a game seed. The salt keeps seeds
// unpredictable to chatters while a replayed message still gets the same seed.
func DeriveSeed(salt []byte, messageID string) uint64 {
	mac := hmac.New(sha256.New, salt)
	mac.Write([]byte(messageID))
	return binary.BigEndian.Uint64(mac.Sum(nil)[:8])
}

// stream is a splitmix64 generator. It is spelled out here so outcomes stay
// bit-identical across Go releases.
type stream struct {
	state uint64
}

func newStream(seed uint64) *stream {
	return &stream{state: seed}
}

func (s *stream) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// intn returns a uniform value in [0, n) using rejection sampling
func (s *stream) intn(n int) int {
	if n <= 1 {
		return 0
	}
	bound := uint64(n)
	limit := ^uint64(0) - (^uint64(0) % bound)
	for {
		v := s.next()
		if v < limit {
			return int(v % bound)
		}
	}
}
