// Package replyhandlers implements the built-in Reply Handlers of
// spec §4.7 (Timer, Notification) and the shell-script plugin
// adapter of spec §4.7/§6, all driven by the tag grammar of spec §6:
// case-insensitive, regular, XML-ish self-closing tags with quoted
// attributes.
//
// Grounded on the teacher's internal/tools/reminders package for time
// parsing idiom, and on original_source/ye_linghua/plugins/timer and
// shell_wrapper.py for exact runtime semantics.
package replyhandlers

import (
	"regexp"
	"strings"
)

// tagPattern matches one self-closing tag of the recognised grammar
// (set-timer, list-timers, remove-timer, notify), case-insensitively,
// capturing the tag name and its raw attribute blob. Attribute values
// may be single- or double-quoted.
var tagPattern = regexp.MustCompile(`(?i)<(set-timer|list-timers|remove-timer|notify)([^>]*)/>`)

// attrPattern extracts one name="value" or name='value' pair from a
// tag's attribute blob.
var attrPattern = regexp.MustCompile(`(\w+)\s*=\s*(?:"([^"]*)"|'([^']*)')`)

// parseAttrs extracts every attribute in blob into a map keyed by
// lower-cased attribute name.
func parseAttrs(blob string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrPattern.FindAllStringSubmatch(blob, -1) {
		name := strings.ToLower(m[1])
		value := m[2]
		if value == "" && m[3] != "" {
			value = m[3]
		}
		attrs[name] = value
	}
	return attrs
}
