package capnweb

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/capnweb-go/capnweb/wire"
)

// evaluator turns a decoded wire.Expr tree back into a host value,
// registering import-table entries for any capability reference it
// encounters (spec.md §4.3 evaluation rules, the mirror image of
// devaluator).
type evaluator struct {
	session *Session
}

func newEvaluator(s *Session) *evaluator {
	return &evaluator{session: s}
}

func (e *evaluator) evaluate(expr wire.Expr) (interface{}, error) {
	switch v := expr.(type) {
	case nil:
		return nil, nil
	case bool, string, float64:
		return v, nil
	case wire.Undefined:
		return v, nil
	case wire.BigInt:
		bi, ok := new(big.Int).SetString(v.Decimal, 10)
		if !ok {
			return nil, wrapErr(ErrDecode, fmt.Errorf("malformed bigint literal %q", v.Decimal))
		}
		return bi, nil
	case wire.Date:
		return time.UnixMilli(int64(v.UnixMilli)).UTC(), nil
	case wire.Bytes:
		return v.Data, nil
	case wire.SpecialNumber:
		switch v {
		case wire.PosInfinity:
			return math.Inf(1), nil
		case wire.NegInfinity:
			return math.Inf(-1), nil
		case wire.NotANumber:
			return math.NaN(), nil
		}
		return nil, wrapErr(ErrDecode, fmt.Errorf("unrecognized special number %q", v))
	case wire.WireError:
		return nil, &RemoteError{Name: v.Name, Message: v.Message}
	case wire.Raw:
		return v.Value, nil
	case wire.Array:
		out := make([]interface{}, len(v))
		for i, el := range v {
			ev, err := e.evaluate(el)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case wire.Object:
		out := make(map[string]interface{}, len(v))
		for k, el := range v {
			ev, err := e.evaluate(el)
			if err != nil {
				return nil, err
			}
			out[k] = ev
		}
		return out, nil
	case wire.Ref:
		return e.evaluateRef(v)
	default:
		return nil, wrapErr(ErrDecode, fmt.Errorf("unrecognized wire expression of type %T", expr))
	}
}

func (e *evaluator) evaluateRef(ref wire.Ref) (interface{}, error) {
	switch ref.Kind {
	case wire.RefImport:
		// The peer is naming one of our own exports (a reference to
		// something we hold); bump its refcount and hand back a stub
		// wrapping the local capability directly.
		exp, ok := e.session.exports.Get(ref.ID)
		if !ok {
			return nil, wrapErr(ErrAccounting, fmt.Errorf("reference to unknown export %d", ref.ID))
		}
		if err := e.session.exports.IncRef(ref.ID, 1); err != nil {
			return nil, wrapErr(ErrAccounting, err)
		}
		return newLocalStub(e.session, exp.Capability, ref.Path), nil

	case wire.RefExport:
		imp := e.session.imports.GetOrCreate(ref.ID, ref.Path)
		return newImportStub(e.session, imp, ref.Path), nil

	case wire.RefPromise:
		q, ok := e.session.inboundQueue(ref.ID)
		if !ok {
			return nil, wrapErr(ErrAccounting, fmt.Errorf("reference to unknown pending result %d", ref.ID))
		}
		return newCallPromiseStub(e.session, ref.ID, q, ref.Path), nil

	default:
		return nil, wrapErr(ErrDecode, fmt.Errorf("unrecognized reference kind %q", ref.Kind))
	}
}
