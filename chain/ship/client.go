package ship

import (
	"context"
	"fmt"
	"time"

	eos "github.com/eoscanada/eos-go"
	"github.com/eoscanada/eos-go/ship"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/atomicore/eosio-contract-indexer/utils"
)

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// Message is one demuxed event from the state history stream: either a block
// result or a fork signal. A fork is not an error; the receiver rolls back to
// ForkAt and processing continues with the attached block.
type Message struct {
	Block  *BlockResult
	ForkAt uint64
}

// BlockResult is one raw get_blocks_result_v0 with its position fields lifted
// out of the variant envelope. Block, traces and deltas stay binary; the
// receiver drives their decoding.
type BlockResult struct {
	BlockNum            uint64
	BlockId             string
	PrevId              string
	HeadNum             uint64
	LastIrreversibleNum uint64

	Block  []byte
	Traces []byte
	Deltas []byte
}

// Client maintains a resilient subscription to a State-History endpoint. It
// requests the half-open range [startBlock, stopBlock), acknowledges batches
// of batchSize blocks and delivers results on a bounded channel so the
// receiver's pace backpressures the socket.
type Client struct {
	logger    logrus.FieldLogger
	endpoint  string
	batchSize uint32

	messages chan *Message

	lastDelivered uint64
	lastBlockId   string
	unacked       uint32
}

func NewClient(logger logrus.FieldLogger, endpoint string, batchSize uint32, queueSize uint32) *Client {
	return &Client{
		logger:    logger.WithField("module", "ship"),
		endpoint:  endpoint,
		batchSize: batchSize,
		messages:  make(chan *Message, queueSize),
	}
}

// Messages is the stream of demuxed block results and fork signals.
func (c *Client) Messages() <-chan *Message {
	return c.messages
}

// Run connects and keeps the subscription alive until ctx is cancelled,
// reconnecting with capped exponential backoff and resuming from the last
// delivered block.
func (c *Client) Run(ctx context.Context, startBlock uint64, stopBlock uint64) {
	defer utils.HandleSubroutinePanic("ship-client")
	defer close(c.messages)

	delay := reconnectBaseDelay
	for {
		if ctx.Err() != nil {
			return
		}

		nextBlock := startBlock
		if c.lastDelivered != 0 {
			nextBlock = c.lastDelivered + 1
		}

		err := c.stream(ctx, nextBlock, stopBlock)
		if err == nil || ctx.Err() != nil {
			return
		}

		c.logger.WithError(err).Errorf("state history connection lost, reconnecting in %v", delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

func (c *Client) stream(ctx context.Context, startBlock uint64, stopBlock uint64) error {
	sock, _, err := websocket.DefaultDialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("error connecting to state history at %v: %v", c.endpoint, err)
	}
	defer sock.Close()

	go func() {
		<-ctx.Done()
		sock.Close()
	}()

	status, err := c.getStatus(sock)
	if err != nil {
		return err
	}
	c.logger.WithFields(logrus.Fields{
		"head":             status.Head.BlockNum,
		"lastIrreversible": status.LastIrreversible.BlockNum,
	}).Info("connected to state history")

	if startBlock == 0 {
		startBlock = uint64(status.LastIrreversible.BlockNum)
	}

	endBlock := uint32(0xffffffff)
	if stopBlock != 0 {
		endBlock = uint32(stopBlock)
	}

	err = c.send(sock, &ship.Request{
		BaseVariant: eos.BaseVariant{
			TypeID: ship.RequestVariant.TypeID("get_blocks_request_v0"),
			Impl: &ship.GetBlocksRequestV0{
				StartBlockNum:       uint32(startBlock),
				EndBlockNum:         endBlock,
				MaxMessagesInFlight: c.batchSize,
				HavePositions:       []*ship.BlockPosition{},
				IrreversibleOnly:    false,
				FetchBlock:          true,
				FetchTraces:         true,
				FetchDeltas:         true,
			},
		},
	})
	if err != nil {
		return err
	}
	c.unacked = 0

	for {
		result := &ship.Result{}
		if err := c.read(sock, result); err != nil {
			return err
		}

		blocks, ok := result.Impl.(*ship.GetBlocksResultV0)
		if !ok {
			// unsolicited status results are ignored
			continue
		}
		if blocks.ThisBlock == nil {
			continue
		}

		msg := c.demux(blocks)
		select {
		case <-ctx.Done():
			return nil
		case c.messages <- msg:
		}

		c.unacked++
		if c.unacked >= c.batchSize {
			err = c.send(sock, &ship.Request{
				BaseVariant: eos.BaseVariant{
					TypeID: ship.RequestVariant.TypeID("get_blocks_ack_request_v0"),
					Impl:   &ship.GetBlocksAckRequestV0{NumMessages: c.unacked},
				},
			})
			if err != nil {
				return err
			}
			c.unacked = 0
		}
	}
}

// demux turns one raw result into a block message, flagging a fork when the
// received block does not chain onto the last delivered one.
func (c *Client) demux(blocks *ship.GetBlocksResultV0) *Message {
	block := &BlockResult{
		BlockNum:            uint64(blocks.ThisBlock.BlockNum),
		BlockId:             blocks.ThisBlock.BlockID.String(),
		HeadNum:             uint64(blocks.Head.BlockNum),
		LastIrreversibleNum: uint64(blocks.LastIrreversible.BlockNum),
	}
	if blocks.PrevBlock != nil {
		block.PrevId = blocks.PrevBlock.BlockID.String()
	}
	if blocks.Block != nil {
		block.Block = []byte(*blocks.Block)
	}
	if blocks.Traces != nil {
		block.Traces = []byte(*blocks.Traces)
	}
	if blocks.Deltas != nil {
		block.Deltas = []byte(*blocks.Deltas)
	}

	msg := &Message{Block: block}
	if c.lastDelivered != 0 && block.BlockNum <= c.lastDelivered {
		msg.ForkAt = block.BlockNum
		c.logger.WithFields(logrus.Fields{
			"lastDelivered": c.lastDelivered,
			"forkAt":        block.BlockNum,
		}).Warn("state history reported a fork")
	} else if c.lastDelivered != 0 && block.PrevId != "" && block.PrevId != c.lastBlockId {
		// out-of-order defense: the block does not chain onto what we delivered
		msg.ForkAt = block.BlockNum
		c.logger.WithFields(logrus.Fields{
			"expectedPrev": c.lastBlockId,
			"receivedPrev": block.PrevId,
		}).Warn("received block does not chain, treating as fork")
	}

	c.lastDelivered = block.BlockNum
	c.lastBlockId = block.BlockId
	return msg
}

func (c *Client) getStatus(sock *websocket.Conn) (*ship.GetStatusResultV0, error) {
	// the server greets with its abi as a text frame before accepting requests
	if _, _, err := sock.ReadMessage(); err != nil {
		return nil, fmt.Errorf("error reading state history greeting: %v", err)
	}

	err := c.send(sock, &ship.Request{
		BaseVariant: eos.BaseVariant{
			TypeID: ship.RequestVariant.TypeID("get_status_request_v0"),
			Impl:   &ship.GetStatusRequestV0{},
		},
	})
	if err != nil {
		return nil, err
	}

	result := &ship.Result{}
	if err := c.read(sock, result); err != nil {
		return nil, err
	}

	status, ok := result.Impl.(*ship.GetStatusResultV0)
	if !ok {
		return nil, fmt.Errorf("unexpected state history response: %T", result.Impl)
	}
	return status, nil
}

func (c *Client) send(sock *websocket.Conn, req *ship.Request) error {
	data, err := eos.MarshalBinary(req)
	if err != nil {
		return fmt.Errorf("error encoding state history request: %v", err)
	}
	if err := sock.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("error sending state history request: %v", err)
	}
	return nil
}

func (c *Client) read(sock *websocket.Conn, result *ship.Result) error {
	_, data, err := sock.ReadMessage()
	if err != nil {
		return fmt.Errorf("error reading state history message: %v", err)
	}
	if err := eos.UnmarshalBinary(data, result); err != nil {
		return fmt.Errorf("error decoding state history message: %v", err)
	}
	return nil
}
