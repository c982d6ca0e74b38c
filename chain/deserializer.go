package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	eos "github.com/eoscanada/eos-go"
	"github.com/sirupsen/logrus"

	"github.com/atomicore/eosio-contract-indexer/utils"
)

type decodeKind int

const (
	decodeActionKind decodeKind = iota
	decodeTableRowKind
)

type decodeRequest struct {
	kind     decodeKind
	tag      string
	abi      *eos.ABI
	contract string
	typeName string
	data     []byte
	reply    chan decodeResult
}

type decodeResult struct {
	value json.RawMessage
	err   error
}

// PendingDecode is the reply side of one single-shot decode request.
type PendingDecode struct {
	reply chan decodeResult
}

func (d *PendingDecode) Wait() (json.RawMessage, error) {
	result := <-d.reply
	return result.value, result.err
}

// DeserializerPool decodes binary action and table payloads against runtime
// ABIs on a fixed set of workers. Workers share no mutable state with the
// receiver; each worker keeps its own ABI instances keyed by version tag and
// communicates through request/reply messages only.
type DeserializerPool struct {
	logger   logrus.FieldLogger
	requests chan *decodeRequest
	workers  int
}

func NewDeserializerPool(logger logrus.FieldLogger, workers int) *DeserializerPool {
	if workers <= 0 {
		workers = 1
	}
	return &DeserializerPool{
		logger:   logger.WithField("module", "deserializer"),
		requests: make(chan *decodeRequest, workers*4),
		workers:  workers,
	}
}

// Start launches the workers and runs the codec probe.
func (p *DeserializerPool) Start(ctx context.Context) {
	if err := p.probe(); err != nil {
		p.logger.Warnf("codec probe failed, decoding continues with the same codec: %v", err)
	}

	for i := 0; i < p.workers; i++ {
		go p.worker(ctx, i)
	}
	p.logger.Infof("started %v deserializer workers", p.workers)
}

// probe runs a round-trip through the codec against a minimal ABI, verifying
// the re-encode length guard works before any stream data reaches the pool.
func (p *DeserializerPool) probe() error {
	abiJson := `{
		"version": "eosio::abi/1.1",
		"structs": [{"name": "probe", "base": "", "fields": [{"name": "value", "type": "uint64"}]}],
		"actions": [{"name": "probe", "type": "probe", "ricardian_contract": ""}]
	}`
	abi, err := eos.NewABI(strings.NewReader(abiJson))
	if err != nil {
		return err
	}

	encoded, err := abi.EncodeAction(eos.ActionName("probe"), []byte(`{"value": 42}`))
	if err != nil {
		return err
	}
	_, err = decodeAction(abi, "probe", encoded)
	return err
}

// DecodeAction submits an action payload decode. The ABI pointer must stay
// immutable once handed to the pool; tag identifies the version so workers can
// reuse their loaded instance.
func (p *DeserializerPool) DecodeAction(abi *eos.ABI, tag string, contract string, action string, data []byte) *PendingDecode {
	return p.submit(&decodeRequest{
		kind:     decodeActionKind,
		tag:      tag,
		abi:      abi,
		contract: contract,
		typeName: action,
		data:     data,
	})
}

// DecodeTableRow submits a contract table row decode against the table type
// named by the enclosing delta.
func (p *DeserializerPool) DecodeTableRow(abi *eos.ABI, tag string, contract string, table string, data []byte) *PendingDecode {
	return p.submit(&decodeRequest{
		kind:     decodeTableRowKind,
		tag:      tag,
		abi:      abi,
		contract: contract,
		typeName: table,
		data:     data,
	})
}

func (p *DeserializerPool) submit(req *decodeRequest) *PendingDecode {
	req.reply = make(chan decodeResult, 1)
	p.requests <- req
	return &PendingDecode{reply: req.reply}
}

func (p *DeserializerPool) worker(ctx context.Context, index int) {
	defer utils.HandleSubroutinePanic(fmt.Sprintf("deserializer-%v", index))

	abis := map[string]*eos.ABI{}

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-p.requests:
			abi, ok := abis[req.tag]
			if !ok {
				abi = req.abi
				abis[req.tag] = abi
			}

			var value json.RawMessage
			var err error
			switch req.kind {
			case decodeActionKind:
				value, err = decodeAction(abi, req.typeName, req.data)
			case decodeTableRowKind:
				value, err = decodeTableRow(abi, req.typeName, req.data)
			}
			if err != nil {
				err = &DecodeError{Contract: req.contract, Type: req.typeName, Err: err}
			}

			req.reply <- decodeResult{value: value, err: err}
		}
	}
}

// decodeAction decodes and re-encodes the payload; a length mismatch between
// input and re-encoded output means the active ABI does not describe this
// payload (ABI drift) and the block must not be committed on it.
func decodeAction(abi *eos.ABI, action string, data []byte) (json.RawMessage, error) {
	decoded, err := abi.DecodeAction(data, eos.ActionName(action))
	if err != nil {
		return nil, err
	}

	reencoded, err := abi.EncodeAction(eos.ActionName(action), decoded)
	if err != nil {
		return nil, err
	}
	if len(reencoded) != len(data) {
		return nil, fmt.Errorf("decoded %v of %v input bytes", len(reencoded), len(data))
	}

	return json.RawMessage(decoded), nil
}

func decodeTableRow(abi *eos.ABI, table string, data []byte) (json.RawMessage, error) {
	decoded, err := abi.DecodeTableRowTyped(tableType(abi, table), data)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(decoded), nil
}

func tableType(abi *eos.ABI, table string) string {
	for _, entry := range abi.Tables {
		if string(entry.Name) == table {
			return entry.Type
		}
	}
	return table
}
