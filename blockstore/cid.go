package blockstore

import (
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"github.com/unkn0wn-root/canoncbor"
)

// LinkTag is the CBOR tag marking a CID link in DAG-CBOR.
const LinkTag = 42

// Sum returns the content address of canonical bytes b:
// CIDv1, dag-cbor codec, sha2-256 multihash.
func Sum(b []byte) (cid.Cid, error) {
	h, err := mh.Sum(b, mh.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.DagCBOR, h), nil
}

// Link returns the DAG-CBOR link to id: tag 42 over a byte string holding a
// zero byte (the identity multibase prefix) followed by the binary CID.
func Link(id cid.Cid) canoncbor.Tag {
	raw := id.Bytes()
	b := make(canoncbor.Bytes, 0, 1+len(raw))
	b = append(b, 0x00)
	b = append(b, raw...)
	return canoncbor.Tag{Number: LinkTag, Content: b}
}

// ParseLink returns the CID a link value points at.
func ParseLink(v canoncbor.Value) (cid.Cid, bool) {
	t, ok := v.(canoncbor.Tag)
	if !ok || t.Number != LinkTag {
		return cid.Undef, false
	}
	b, ok := t.Content.(canoncbor.Bytes)
	if !ok || len(b) < 2 || b[0] != 0x00 {
		return cid.Undef, false
	}
	id, err := cid.Cast(b[1:])
	if err != nil {
		return cid.Undef, false
	}
	return id, true
}

// Links returns every link inside v in depth-first order, map keys before
// their values. Duplicates are kept.
func Links(v canoncbor.Value) []cid.Cid {
	var out []cid.Cid
	walkLinks(v, &out)
	return out
}

func walkLinks(v canoncbor.Value, out *[]cid.Cid) {
	switch x := v.(type) {
	case canoncbor.Tag:
		if id, ok := ParseLink(x); ok {
			*out = append(*out, id)
			return
		}
		walkLinks(x.Content, out)
	case canoncbor.Array:
		for _, it := range x {
			walkLinks(it, out)
		}
	case canoncbor.Map:
		for _, p := range x {
			walkLinks(p.Key, out)
			walkLinks(p.Value, out)
		}
	}
}
