package main

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MintEvent is emitted once per successful redemption for external indexers.
type MintEvent struct {
	ID       uuid.UUID      `json:"id"`
	Redeemer common.Address `json:"redeemer"`
	TokenID  *big.Int       `json:"tokenId"`
	URI      string         `json:"uri"`
	MintedAt time.Time      `json:"mintedAt"`
}

// EventSink is the engine's only outbound integration point. The engine never
// learns whether anything downstream consumes the events.
type EventSink interface {
	EmitMint(event MintEvent)
}

// LogSink writes mint events to the structured log.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (sink *LogSink) EmitMint(event MintEvent) {
	sink.log.Info("asset minted",
		zap.String("event_id", event.ID.String()),
		zap.String("redeemer", event.Redeemer.Hex()),
		zap.String("token_id", event.TokenID.String()),
		zap.String("uri", event.URI),
		zap.Time("minted_at", event.MintedAt),
	)
}

// ChannelSink buffers mint events on a channel for embedders and tests. Events
// are dropped once the buffer is full rather than blocking a redemption.
type ChannelSink struct {
	Events chan MintEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{Events: make(chan MintEvent, buffer)}
}

func (sink *ChannelSink) EmitMint(event MintEvent) {
	select {
	case sink.Events <- event:
	default:
	}
}
