// Package commands implements the fastpair-log CLI commands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fastpair-protocol/fastpair-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	// Session matches session IDs by prefix, so the short form printed by
	// view can be pasted back.
	Session   string
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
}

func (f ViewFilter) matches(e log.Event) bool {
	switch {
	case f.Session != "" && !strings.HasPrefix(e.SessionID, f.Session):
		return false
	case f.Layer != nil && e.Layer != *f.Layer:
		return false
	case f.Direction != nil && e.Direction != *f.Direction:
		return false
	case f.Category != nil && e.Category != *f.Category:
		return false
	}
	return true
}

// eventType names the payload carried by an event.
func eventType(e log.Event) string {
	switch {
	case e.Message != nil:
		return e.Message.Type.String()
	case e.StateChange != nil:
		return "State"
	case e.Bond != nil:
		return e.Bond.Type
	case e.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session:id] OP DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [session:%s] %-6s %-3s %s %s\n",
		ts, shortenID(event.SessionID), event.Operation, event.Direction, event.Layer, eventType(event))
	if event.Address != "" {
		fmt.Fprintf(w, "  Address: %s\n", event.Address)
	}

	switch {
	case event.Message != nil:
		fmt.Fprintf(w, "  Size: %d bytes\n", event.Message.Size)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Bond != nil:
		formatBondDetails(w, event.Bond)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenID returns the first 8 characters of a session ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatBondDetails(w io.Writer, b *log.BondEvent) {
	if b.State != "" {
		fmt.Fprintf(w, "  State: %s\n", b.State)
	}
	if b.PasskeyRequested {
		fmt.Fprintln(w, "  Passkey requested")
	}
	if b.Reason != 0 {
		fmt.Fprintf(w, "  Reason: %d\n", b.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer)
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Kind != "" {
		fmt.Fprintf(w, "  Kind: %s\n", err.Kind)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	return parseLayer(s)
}

func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "bond":
		return log.LayerBond, nil
	case "exchange":
		return log.LayerExchange, nil
	case "session":
		return log.LayerSession, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be bond, exchange, or session)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	return parseDirection(s)
}

func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "notification":
		return log.CategoryNotification, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, notification, or error)", s)
	}
}

func parseOperation(s string) (log.Operation, error) {
	switch strings.ToLower(s) {
	case "pair":
		return log.OperationPair, nil
	case "unpair":
		return log.OperationUnpair, nil
	default:
		return 0, fmt.Errorf("invalid operation: %s (must be pair or unpair)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if filter.matches(event) {
			formatEvent(output, event)
		}
	}
}
