// Package blockstore stores canonical CBOR values by content address.
//
// Every block is kept in canonical form, so equal values always share one
// CID no matter how the bytes that produced them were laid out. Reads
// re-hash what the provider returns; a block that no longer matches its
// address is deleted and reported as missing.
//
// Providers are caches: a write the provider refuses under pressure is
// logged, not returned as an error.
package blockstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/unkn0wn-root/canoncbor"
	"github.com/unkn0wn-root/canoncbor/codec"
	"github.com/unkn0wn-root/canoncbor/internal/wire"
	pr "github.com/unkn0wn-root/canoncbor/provider"
)

var (
	ErrNotFound  = errors.New("blockstore: block not found")
	ErrBadCID    = errors.New("blockstore: unsupported CID")
	ErrBadBundle = errors.New("blockstore: invalid bundle")
)

const defaultNamespace = "canoncbor"

// SetCostFunc computes the provider cost of storing raw under key.
type SetCostFunc func(key string, raw []byte) int64

// Options configures a Store. Only Provider is required.
type Options struct {
	Provider       pr.Provider
	Namespace      string           // key prefix; "" => "canoncbor"
	Codec          codec.Options    // limits and policies for incoming bytes
	TTL            time.Duration    // 0 => no expiry
	Logger         canoncbor.Logger // if nil, NopLogger is used
	Hooks          canoncbor.Hooks  // if nil, NopHooks is used
	ComputeSetCost SetCostFunc      // default len(raw)
}

type Store struct {
	ns       string
	provider pr.Provider
	canon    *codec.Canonical
	ttl      time.Duration
	log      canoncbor.Logger
	hooks    canoncbor.Hooks
	cost     SetCostFunc
}

func New(opts Options) (*Store, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("blockstore: provider is required")
	}
	s := &Store{
		ns:       coalesce(opts.Namespace, defaultNamespace),
		provider: opts.Provider,
		ttl:      opts.TTL,
		log:      coalesce[canoncbor.Logger](opts.Logger, canoncbor.NopLogger{}),
		hooks:    coalesce[canoncbor.Hooks](opts.Hooks, canoncbor.NopHooks{}),
		cost:     opts.ComputeSetCost,
	}
	if s.cost == nil {
		s.cost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	}

	co := opts.Codec
	co.Logger = coalesce[canoncbor.Logger](co.Logger, s.log)
	co.Hooks = coalesce[canoncbor.Hooks](co.Hooks, s.hooks)
	canon, err := codec.NewCanonical(co)
	if err != nil {
		return nil, err
	}
	s.canon = canon
	return s, nil
}

func (s *Store) key(id cid.Cid) string { return s.ns + ":" + id.String() }

// Put stores the canonical encoding of v and returns its CID.
func (s *Store) Put(ctx context.Context, v canoncbor.Value) (cid.Cid, error) {
	b, err := s.canon.Encode(v)
	if err != nil {
		return cid.Undef, err
	}
	return s.put(ctx, b)
}

// PutRaw canonicalizes b and stores the result. The returned CID addresses
// the canonical bytes, which may differ from b.
func (s *Store) PutRaw(ctx context.Context, b []byte) (cid.Cid, error) {
	canon, err := s.canon.Canonicalize(b)
	if err != nil {
		return cid.Undef, err
	}
	return s.put(ctx, canon)
}

func (s *Store) put(ctx context.Context, canon []byte) (cid.Cid, error) {
	id, err := Sum(canon)
	if err != nil {
		return cid.Undef, err
	}
	k := s.key(id)
	ok, err := s.provider.Set(ctx, k, canon, s.cost(k, canon), s.ttl)
	if err != nil {
		return cid.Undef, err
	}
	if !ok {
		s.log.Debug("block rejected by provider (pressure)", canoncbor.Fields{"cid": id.String(), "size": len(canon)})
	}
	return id, nil
}

// GetRaw returns the stored bytes for id after checking them against id.
func (s *Store) GetRaw(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() || id.Type() != cid.DagCBOR {
		return nil, fmt.Errorf("%w: %s", ErrBadCID, id)
	}
	k := s.key(id)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	got, err := id.Prefix().Sum(raw)
	if err != nil || !got.Equals(id) {
		s.selfHeal(ctx, k, id, "hash mismatch")
		return nil, ErrNotFound
	}
	return raw, nil
}

// Get returns the value stored under id.
func (s *Store) Get(ctx context.Context, id cid.Cid) (canoncbor.Value, error) {
	raw, err := s.GetRaw(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := s.canon.Decode(raw)
	if err != nil {
		// hash matched, so the bytes were stored by someone else
		s.selfHeal(ctx, s.key(id), id, "undecodable block")
		return nil, ErrNotFound
	}
	return v, nil
}

// Has reports whether a block is stored under id. It does not verify the
// block; Get and GetRaw do.
func (s *Store) Has(ctx context.Context, id cid.Cid) (bool, error) {
	_, ok, err := s.provider.Get(ctx, s.key(id))
	return ok, err
}

func (s *Store) Delete(ctx context.Context, id cid.Cid) error {
	return s.provider.Del(ctx, s.key(id))
}

func (s *Store) Close(ctx context.Context) error {
	return s.provider.Close(ctx)
}

func (s *Store) selfHeal(ctx context.Context, k string, id cid.Cid, reason string) {
	_ = s.provider.Del(ctx, k)
	s.hooks.BlockCorrupt(id.String())
	s.log.Warn("dropped corrupt block", canoncbor.Fields{"cid": id.String(), "reason": reason})
}

// Export bundles the blocks for ids, in order.
func (s *Store) Export(ctx context.Context, ids []cid.Cid) ([]byte, error) {
	blocks := make([]wire.Block, 0, len(ids))
	for _, id := range ids {
		raw, err := s.GetRaw(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("blockstore: export %s: %w", id, err)
		}
		blocks = append(blocks, wire.Block{CID: id.Bytes(), Payload: raw})
	}
	return wire.EncodeBundle(blocks)
}

// ExportDAG bundles root and every block reachable from it through links,
// root first. All reachable dag-cbor blocks must be present. Links to other
// codecs (raw leaves and the like) cannot live in a Store and are skipped.
func (s *Store) ExportDAG(ctx context.Context, root cid.Cid) ([]byte, error) {
	seen := map[cid.Cid]struct{}{root: {}}
	queue := []cid.Cid{root}
	var blocks []wire.Block
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		raw, err := s.GetRaw(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("blockstore: export %s: %w", id, err)
		}
		v, err := s.canon.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("blockstore: export %s: %w", id, err)
		}
		blocks = append(blocks, wire.Block{CID: id.Bytes(), Payload: raw})
		for _, l := range Links(v) {
			if _, ok := seen[l]; ok || l.Type() != cid.DagCBOR {
				continue
			}
			seen[l] = struct{}{}
			queue = append(queue, l)
		}
	}
	return wire.EncodeBundle(blocks)
}

// Import verifies every block of a bundle (address matches content, content
// is canonical) and only then stores them. It returns the CIDs in bundle
// order.
func (s *Store) Import(ctx context.Context, bundle []byte) ([]cid.Cid, error) {
	blocks, err := wire.DecodeBundle(bundle)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadBundle, err)
	}
	ids := make([]cid.Cid, len(blocks))
	for i, b := range blocks {
		id, err := cid.Cast(b.CID)
		if err != nil {
			return nil, fmt.Errorf("%w: block %d: %w", ErrBadBundle, i, err)
		}
		if id.Type() != cid.DagCBOR {
			return nil, fmt.Errorf("%w: block %d: %w: %s", ErrBadBundle, i, ErrBadCID, id)
		}
		got, err := id.Prefix().Sum(b.Payload)
		if err != nil || !got.Equals(id) {
			return nil, fmt.Errorf("%w: block %d: content does not match %s", ErrBadBundle, i, id)
		}
		canon, err := s.canon.Canonicalize(b.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: block %d: %w", ErrBadBundle, i, err)
		}
		if !bytes.Equal(canon, b.Payload) {
			return nil, fmt.Errorf("%w: block %d is not canonical", ErrBadBundle, i)
		}
		ids[i] = id
	}

	for i, b := range blocks {
		k := s.key(ids[i])
		// bundle payloads alias the input
		raw := bytes.Clone(b.Payload)
		ok, err := s.provider.Set(ctx, k, raw, s.cost(k, raw), s.ttl)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.log.Debug("block rejected by provider (pressure)", canoncbor.Fields{"cid": ids[i].String(), "size": len(raw)})
		}
	}
	return ids, nil
}

func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
