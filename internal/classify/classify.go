// Package classify turns raw controller log lines into typed events.
//
// The upstream controller publishes human-readable log lines, not structured
// payloads, so the wire contract is substring and regexp matching. This
// package isolates that brittleness: everything downstream of it only ever
// sees model.Event values. Classification is pure and never fails — a line
// that matches nothing yields an empty slice.
package classify

import (
	"regexp"
	"strings"

	"github.com/phoenix-mes/phoenix/internal/model"
)

const (
	// sourceEditor emits file-access notices carrying the loaded program path.
	sourceEditor = "Editor"
	// sourceStation emits process cache notices.
	sourceStation = "StationController"

	// previewSentinel is a transient preview file the editor touches on
	// every selection; it is never a real program load.
	previewSentinel = "LastPart.txt"
	// libraryMarker in a path means the program came from the shared
	// shape library rather than being programmed directly.
	libraryMarker = "ShapeLibrary"
)

var (
	quotedPathRe   = regexp.MustCompile(`"(.+?)"`)
	cacheProcessRe = regexp.MustCompile(`Cache Process:\s*(\d+)`)
)

// IgnoreTopic reports whether a bus topic should be dropped before payload
// decoding. Heartbeat/uptime topics carry no classifiable content.
func IgnoreTopic(topic string) bool {
	return strings.Contains(topic, "Uptime")
}

// Classify extracts zero or more events from one (source, message) pair.
// A single line can legitimately carry several triggers; the returned order
// is significant and must be preserved downstream.
func Classify(source, message string) []model.Event {
	var events []model.Event

	if source == sourceEditor && (strings.Contains(message, "Read") || strings.Contains(message, "Write")) {
		if m := quotedPathRe.FindStringSubmatch(message); m != nil {
			path := m[1]
			if !strings.Contains(path, previewSentinel) {
				origin := model.OriginProgrammed
				if strings.Contains(path, libraryMarker) {
					origin = model.OriginLibrary
				}
				events = append(events, model.Event{
					Type:    model.EventProgramLoaded,
					Program: basename(path),
					Origin:  origin,
				})
			}
		}
	}

	if source == sourceStation {
		if m := cacheProcessRe.FindStringSubmatch(message); m != nil {
			events = append(events, model.Event{
				Type:      model.EventProcessIdentified,
				ProcessID: m[1],
			})
		}
	}

	if strings.Contains(message, "Program_Running turned On") {
		events = append(events, model.Event{Type: model.EventRunStarted})
	}

	if strings.Contains(message, "Traversing") {
		events = append(events, model.Event{Type: model.EventStateChanged, To: model.StateTraverse})
	}

	// Trialing and Cutting are merged upstream; both mean the head is down.
	if strings.Contains(message, "Trialing") || strings.Contains(message, "Cutting") {
		events = append(events, model.Event{Type: model.EventStateChanged, To: model.StateCut})
	}

	if strings.Contains(message, "Paused") {
		events = append(events, model.Event{Type: model.EventStateChanged, To: model.StatePause})
	}

	if strings.Contains(message, "Completed") {
		events = append(events, model.Event{Type: model.EventRunCompleted})
	}

	return events
}

// basename strips the directory part of a controller path. The controller
// runs on Windows, so both separators appear in the wild.
func basename(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
