package replyhandlers

import "github.com/haasonsaas/nexus/internal/plugins"

// TimerPlugin wraps TimerHandler as a plugins.Plugin so the Timer
// reply handler can be loaded through the Plugin Registry alongside
// shell-script plugins, rather than being wired into the chain by
// hand.
type TimerPlugin struct {
	handler *TimerHandler
}

// NewTimerPlugin builds the built-in timer plugin around handler.
func NewTimerPlugin(handler *TimerHandler) *TimerPlugin {
	return &TimerPlugin{handler: handler}
}

func (p *TimerPlugin) Metadata() plugins.Metadata {
	return plugins.Metadata{ID: "timer", Name: "Timer", Version: "1.0.0", Type: plugins.TypeBuiltin}
}

func (p *TimerPlugin) Initialise() error { return nil }
func (p *TimerPlugin) Shutdown() error   { return nil }

func (p *TimerPlugin) PromptExtension(plugins.PluginContext) string { return "" }

func (p *TimerPlugin) ReplyHandlers() []plugins.ReplyHandler {
	return []plugins.ReplyHandler{p.handler}
}

// NotifyPlugin wraps NotifyHandler as a plugins.Plugin.
type NotifyPlugin struct {
	handler *NotifyHandler
}

// NewNotifyPlugin builds the built-in notification plugin around
// handler.
func NewNotifyPlugin(handler *NotifyHandler) *NotifyPlugin {
	return &NotifyPlugin{handler: handler}
}

func (p *NotifyPlugin) Metadata() plugins.Metadata {
	return plugins.Metadata{ID: "notify", Name: "Notify", Version: "1.0.0", Type: plugins.TypeBuiltin}
}

func (p *NotifyPlugin) Initialise() error { return nil }
func (p *NotifyPlugin) Shutdown() error   { return nil }

func (p *NotifyPlugin) PromptExtension(plugins.PluginContext) string { return "" }

func (p *NotifyPlugin) ReplyHandlers() []plugins.ReplyHandler {
	return []plugins.ReplyHandler{p.handler}
}
