package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/atomicore/eosio-contract-indexer/types"
)

// Bus fans out "this entity changed" events over redis pub/sub channels named
// <prefix>:<chain>:<reader>:<handler>:<contract>:<topic>. Publish failures are
// logged and swallowed; they can never roll back committed data.
type Bus struct {
	logger     logrus.FieldLogger
	client     *redis.Client
	prefix     string
	chainName  string
	readerName string
}

func NewBus(ctx context.Context, logger logrus.FieldLogger, address string, prefix string, chainName string, readerName string) (*Bus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        address,
		ReadTimeout: time.Second * 20,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to redis at %v: %v", address, err)
	}

	return &Bus{
		logger:     logger.WithField("module", "notify"),
		client:     client,
		prefix:     prefix,
		chainName:  chainName,
		readerName: readerName,
	}, nil
}

func (b *Bus) Close() error {
	return b.client.Close()
}

// Channel builds the full channel name for a handler/contract topic.
func (b *Bus) Channel(handler string, contract string, topic string) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:%s", b.prefix, b.chainName, b.readerName, handler, contract, topic)
}

// Message is the payload schema published on every channel.
type Message struct {
	Action      string                `json:"action"`
	Data        interface{}           `json:"data"`
	Block       types.BlockRef        `json:"block"`
	Transaction *types.TransactionRef `json:"transaction,omitempty"`
}

func (b *Bus) publish(ctx context.Context, channel string, msg *Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Errorf("error encoding notification for %v: %v", channel, err)
		return
	}
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		b.logger.Errorf("error publishing notification to %v: %v", channel, err)
	}
}

// PublishChainFork announces a fork on the chain topic. Forks are published
// immediately after the rollback transaction commits.
func (b *Bus) PublishChainFork(ctx context.Context, handler string, contract string, blockNum uint64) {
	b.publish(ctx, b.Channel(handler, contract, "chain"), &Message{
		Action: "fork",
		Data:   map[string]interface{}{"block_num": blockNum},
		Block:  types.BlockRef{BlockNum: blockNum},
	})
}

// Publisher stages one handler's notifications during block processing and
// releases them on commit. Staging happens only while the block transaction is
// reversible; history backfill stays silent.
type Publisher struct {
	bus      *Bus
	handler  string
	contract string
	staged   []staged
}

type staged struct {
	channel string
	message *Message
}

func (b *Bus) Publisher(handler string, contract string) *Publisher {
	return &Publisher{
		bus:      b,
		handler:  handler,
		contract: contract,
	}
}

// Stage buffers a notification for release in Flush.
func (p *Publisher) Stage(topic string, action string, block types.BlockRef, tx *types.TransactionRef, data interface{}) {
	p.staged = append(p.staged, staged{
		channel: p.bus.Channel(p.handler, p.contract, topic),
		message: &Message{
			Action:      action,
			Data:        data,
			Block:       block,
			Transaction: tx,
		},
	})
}

// Flush publishes all staged notifications in enqueue order.
func (p *Publisher) Flush(ctx context.Context) {
	for _, entry := range p.staged {
		p.bus.publish(ctx, entry.channel, entry.message)
	}
	p.staged = nil
}

// Discard drops staged notifications after an aborted block.
func (p *Publisher) Discard() {
	p.staged = nil
}
