package core

import (
	"crypto/rand"
	"strconv"
	"time"

	"pkt.systems/webshell/schema"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var idClock = time.Now

// newTabID returns an id of the form tab-<unix millis>-<5 base36 chars>.
func newTabID() schema.TabID {
	var buf [5]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return schema.TabID("tab-" + strconv.FormatInt(idClock().UnixNano(), 36))
	}
	suffix := make([]byte, len(buf))
	for i, b := range buf {
		suffix[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return schema.TabID("tab-" + strconv.FormatInt(idClock().UnixMilli(), 10) + "-" + string(suffix))
}
