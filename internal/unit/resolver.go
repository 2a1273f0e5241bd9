package unit

import "fmt"

// Default unit name templates; %d is substituted with the channel ID.
var defaultTemplates = map[Kind]string{
	KindIngest:  "srt-rx@%d.service",
	KindRecord:  "recorder@%d.service",
	KindPublish: "rtmp-pub@%d.service",
}

// Resolver derives a concrete unit name from (channelID, kind) via a
// per-kind naming template. It is the only place unit naming lives; every
// other component stays ignorant of the supervision technology.
type Resolver struct {
	templates map[Kind]string
}

// NewResolver builds a Resolver from per-kind templates. Kinds missing from
// the map fall back to the defaults; unknown keys are ignored.
func NewResolver(templates map[Kind]string) *Resolver {
	merged := make(map[Kind]string, len(defaultTemplates))
	for k, tpl := range defaultTemplates {
		merged[k] = tpl
	}
	for _, k := range Kinds() {
		if tpl, ok := templates[k]; ok && tpl != "" {
			merged[k] = tpl
		}
	}
	return &Resolver{templates: merged}
}

// Resolve returns the unit name for the given channel and kind.
// Pure and total over the recognized kinds; ErrUnknownServiceKind otherwise.
func (r *Resolver) Resolve(channelID int64, kind Kind) (string, error) {
	tpl, ok := r.templates[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownServiceKind, kind)
	}
	return fmt.Sprintf(tpl, channelID), nil
}
