package quarterdeck

import (
	"pkt.systems/quarterdeck/core"
	"pkt.systems/quarterdeck/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnTabEvent(event schema.TabEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnTabEvent(event)
	}
}

func (f eventFanout) OnCommandEvent(event schema.CommandEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnCommandEvent(event)
	}
}
