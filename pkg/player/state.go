// Package player implements synchronized playback of mixed media sets:
// audio streams handed to a sink, video streams decoded by a pump
// worker, and duration-only placeholders. The Scheduler aligns their
// wall-clock anchors so parallel streams start coherently.
package player

// State is the lifecycle state of a single media player.
type State int

const (
	// StateUnknown marks a player whose media failed to load or was
	// never loaded.
	StateUnknown State = iota

	// StateLoading marks a player whose media is being decoded.
	StateLoading

	// StateStopped marks a loaded player at rest.
	StateStopped

	// StatePlaying marks an actively rendering player.
	StatePlaying

	// StatePaused marks a player suspended mid-interval.
	StatePaused
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// MediaType classifies what a player renders.
type MediaType int

const (
	// MediaUnknown is the zero type, before any Load.
	MediaUnknown MediaType = iota

	// MediaUnsupported marks files no decoder handles; they still
	// contribute a duration to the timeline.
	MediaUnsupported

	// MediaAudio marks audio streams.
	MediaAudio

	// MediaVideo marks video streams.
	MediaVideo
)

// String implements fmt.Stringer.
func (t MediaType) String() string {
	switch t {
	case MediaUnsupported:
		return "unsupported"
	case MediaAudio:
		return "audio"
	case MediaVideo:
		return "video"
	default:
		return "unknown"
	}
}
