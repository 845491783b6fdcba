package luaplugin

import (
	"log/slog"

	"github.com/sled-run/sleddbg/internal/sled/plugin"
	"github.com/sled-run/sleddbg/internal/sled/scmp"
	"github.com/sled-run/sleddbg/internal/sled/stringset"
	"github.com/sled-run/sleddbg/pkg/luahost"
)

// editQueue is the fixed-capacity pending-reload set of spec §4.14.
type editQueue struct {
	pending *stringset.Set
	load    EditLoadCallback
	finish  EditFinishCallback
	userdata any

	sender   plugin.Sender
	pluginID scmp.PluginID
}

func newEditQueue(cfg Config, slots []string, used []bool, sender plugin.Sender, pluginID scmp.PluginID) *editQueue {
	return &editQueue{
		pending:  stringset.New(slots, used, cfg.MaxEditAndContinueEntryLen, false),
		load:     cfg.EditLoad,
		finish:   cfg.EditFinish,
		userdata: cfg.EditUserdata,
		sender:   sender,
		pluginID: pluginID,
	}
}

// enqueue records a relative path for reload at the next resume (spec
// §4.14, triggered by an EditAndContinue message).
func (q *editQueue) enqueue(relativePath string) error {
	return q.pending.Add(relativePath)
}

// applyOnResume is called once the IDE has sent a debug-mode change out of
// a breakpoint loop. If the queue is non-empty, each entry is loaded via
// the host callback, compiled, and pcall'd in L; any error is reported on
// TTY. The queue is cleared regardless of outcome (spec §4.14).
func (q *editQueue) applyOnResume(L luahost.Interpreter, tty func(text string)) {
	if q.pending.IsEmpty() {
		return
	}
	if q.load == nil {
		q.pending.Clear()
		return
	}

	q.pending.Each(func(path string) bool {
		bytes, err := q.load(path, q.userdata)
		if err != nil {
			tty("edit-and-continue: load failed for " + path + ": " + err.Error())
			return true
		}
		if err := L.LoadString(string(bytes), "@"+path); err != nil {
			tty("edit-and-continue: compile failed for " + path + ": " + err.Error())
			return true
		}
		if err := L.PCall(0, 0); err != nil {
			tty("edit-and-continue: execution failed for " + path + ": " + err.Error())
			return true
		}
		slog.Info("sled_edit_and_continue_applied", "path", path, "component", "luaplugin")
		return true
	})

	if q.finish != nil {
		q.finish(q.userdata)
	}
	q.pending.Clear()
}
