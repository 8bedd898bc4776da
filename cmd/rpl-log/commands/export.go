package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ograsdijk/pyrpl/pkg/log"
)

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string, filter log.Filter) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "device", "module", "category", "name", "value"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		name, value := eventDetail(event)
		row := []string{
			event.Timestamp.UTC().Format(time.RFC3339Nano),
			event.Device,
			event.Module,
			event.Category.String(),
			name,
			value,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return cw.Error()
}

// eventDetail flattens the event payload into a name and a value column.
func eventDetail(event log.Event) (string, string) {
	switch {
	case event.Attribute != nil:
		return event.Attribute.Name, fmt.Sprint(event.Attribute.Value)
	case event.Options != nil:
		return event.Options.Name, fmt.Sprint(event.Options.Options)
	case event.Ownership != nil:
		return "owner", event.Ownership.NewOwner
	case event.Setup != nil:
		return "duration", event.Setup.Duration.String()
	case event.Error != nil:
		return event.Error.Operation, event.Error.Message
	default:
		return "", ""
	}
}
