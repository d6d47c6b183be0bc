// Package sloghooks logs canoncbor hook events to a *slog.Logger, with
// per-event sampling so hostile traffic cannot flood the log.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/canoncbor"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	DecodeRejectedEvery    uint64
	NonCanonicalInputEvery uint64
	// Optional CID redactor. Defaults to the identity; CIDs are content
	// hashes, redact only if block contents are guessable and sensitive.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	rejectedCtr     atomic.Uint64
	nonCanonicalCtr atomic.Uint64
}

var _ canoncbor.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

// HashRedact replaces an id with a short SHA-256 prefix.
func HashRedact(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:8])
}

func (h *Hooks) redact(id string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(id)
	}
	return id
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) DecodeRejected(kind, limit string, size int) {
	if h.l == nil || !sample(h.opts.DecodeRejectedEvery, &h.rejectedCtr) {
		return
	}
	h.l.Info("canoncbor.decode_rejected",
		"kind", kind,
		"limit", limit,
		"size", size)
}

func (h *Hooks) NonCanonicalInput(size, canonicalSize int) {
	if h.l == nil || !sample(h.opts.NonCanonicalInputEvery, &h.nonCanonicalCtr) {
		return
	}
	h.l.Debug("canoncbor.non_canonical_input",
		"size", size,
		"canonical_size", canonicalSize)
}

func (h *Hooks) EncodeRejected(size, max int) {
	if h.l == nil {
		return
	}
	h.l.Warn("canoncbor.encode_rejected",
		"size", size,
		"max", max)
}

func (h *Hooks) BlockCorrupt(id string) {
	if h.l == nil {
		return
	}
	h.l.Error("canoncbor.block_corrupt",
		"cid", h.redact(id))
}
