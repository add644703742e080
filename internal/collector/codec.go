package collector

import (
	"bytes"
	"encoding/gob"

	"github.com/wegman-software/osmpbf-core/internal/entity"
	"github.com/wegman-software/osmpbf-core/internal/errs"
)

// gobEnvelope wraps an entity.Object with its Kind so decoding can pick
// the right concrete type back out of the interface. gob is used here
// because this is a purely internal buffer format for the collector's
// append-only stores, not a wire or domain format any example repo's
// third-party library targets — see DESIGN.md.
type gobEnvelope struct {
	Kind entity.Kind
	Node entity.Node
	Way  entity.Way
	Rel  entity.Relation
}

func init() {
	gob.Register(entity.Node{})
	gob.Register(entity.Way{})
	gob.Register(entity.Relation{})
}

// encodeObject serializes an entity.Object for storage in a byteArena.
func encodeObject(o entity.Object) ([]byte, error) {
	env := gobEnvelope{Kind: o.ObjectKind()}
	switch v := o.(type) {
	case entity.Node:
		env.Node = v
	case entity.Way:
		env.Way = v
	case entity.Relation:
		env.Rel = v
	default:
		return nil, errs.NewCorruptf("collector: unknown object type %T", o)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return nil, errs.WrapCorrupt("encoding object for arena", err)
	}
	return buf.Bytes(), nil
}

// decodeObject deserializes a record written by encodeObject.
func decodeObject(rec []byte) (entity.Object, error) {
	var env gobEnvelope
	if err := gob.NewDecoder(bytes.NewReader(rec)).Decode(&env); err != nil {
		return nil, errs.WrapCorrupt("decoding object from arena", err)
	}
	switch env.Kind {
	case entity.KindNode:
		return env.Node, nil
	case entity.KindWay:
		return env.Way, nil
	case entity.KindRelation:
		return env.Rel, nil
	default:
		return nil, errs.NewCorruptf("collector: unknown object kind %d in arena record", env.Kind)
	}
}
