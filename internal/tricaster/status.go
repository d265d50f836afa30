// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

/*
status.go - TriCaster status document parsing

Status documents vary by device model and firmware. Two shapes carry DDR
clip data:

	form 1: <ddr index="1" file_duration="0:02:05.00" clip_framerate="25" .../>
	form 2: <ddr1 duration="125.0" clip_seconds_elapsed="10" clip_seconds_remaining="115" .../>

Durations are either timecode strings or bare seconds; both go through the
timecode parser. Form 2 additionally allows deriving a duration from
elapsed + remaining when no duration attribute is present.
*/

package tricaster

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/elliottw/singularsync/internal/timecode"
)

// SlotDuration is the parsed duration of one DDR slot's loaded clip. FPS
// is 0 when the document carries no usable framerate.
type SlotDuration struct {
	Seconds float64
	FPS     float64
}

// SlotStatus is the full reported state of one DDR slot, for the status
// passthrough endpoint. String fields hold whatever the device sent.
type SlotStatus struct {
	Duration  string `json:"duration"`
	Elapsed   string `json:"elapsed"`
	Remaining string `json:"remaining"`
	Framerate string `json:"framerate"`
	Playing   bool   `json:"playing"`
	Filename  string `json:"filename"`
}

// TallyStatus lists the source names currently on program and preview.
type TallyStatus struct {
	Program []string `json:"program"`
	Preview []string `json:"preview"`
}

// xmlNode is a schema-free XML tree; status document layouts differ too
// much across firmware versions for fixed structs.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
}

// attr returns the first present attribute among names, or "".
func (n *xmlNode) attr(names ...string) string {
	for _, want := range names {
		for _, a := range n.Attrs {
			if a.Name.Local == want {
				return a.Value
			}
		}
	}
	return ""
}

// findNode depth-first searches for an element with the given local name,
// optionally constrained to a matching attribute value.
func findNode(n *xmlNode, name, attrName, attrValue string) *xmlNode {
	if n.XMLName.Local == name && (attrName == "" || n.attr(attrName) == attrValue) {
		return n
	}
	for i := range n.Children {
		if found := findNode(&n.Children[i], name, attrName, attrValue); found != nil {
			return found
		}
	}
	return nil
}

// walkNodes visits every element in document order.
func walkNodes(n *xmlNode, visit func(*xmlNode)) {
	visit(n)
	for i := range n.Children {
		walkNodes(&n.Children[i], visit)
	}
}

func parseDocument(data []byte) (*xmlNode, error) {
	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &root, nil
}

// slotNode locates the element describing a slot in either document form.
// Form 1 is preferred when both appear.
func slotNode(root *xmlNode, slot int) (node *xmlNode, form2 bool) {
	if el := findNode(root, "ddr", "index", strconv.Itoa(slot)); el != nil {
		return el, false
	}
	if el := findNode(root, fmt.Sprintf("ddr%d", slot), "", ""); el != nil {
		return el, true
	}
	return nil, false
}

// durationOf reads a slot element's duration in seconds. The
// elapsed+remaining fallback applies to form 2 only; form 1 documents
// without a duration attribute simply have no loaded clip.
func durationOf(el *xmlNode, form2 bool) (float64, bool) {
	raw := el.attr("file_duration", "duration")
	if raw != "" {
		if seconds, ok := timecode.Parse(raw); ok {
			return seconds, true
		}
	}
	if !form2 {
		return 0, false
	}

	elapsed := el.attr("clip_seconds_elapsed")
	remaining := el.attr("clip_seconds_remaining")
	if elapsed == "" || remaining == "" {
		return 0, false
	}
	e, err1 := strconv.ParseFloat(elapsed, 64)
	r, err2 := strconv.ParseFloat(remaining, 64)
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return e + r, true
}

func framerateOf(el *xmlNode) float64 {
	raw := el.attr("clip_framerate")
	if raw == "" {
		return 0
	}
	fps, err := strconv.ParseFloat(raw, 64)
	if err != nil || fps <= 0 {
		return 0
	}
	return fps
}

// ExtractSlotDuration pulls one slot's clip duration out of a status
// document. ErrParse means the document is not XML; ErrSlotNotFound means
// it is readable but carries no usable duration for the slot.
func ExtractSlotDuration(data []byte, slot int) (SlotDuration, error) {
	root, err := parseDocument(data)
	if err != nil {
		return SlotDuration{}, err
	}

	el, form2 := slotNode(root, slot)
	if el == nil {
		return SlotDuration{}, fmt.Errorf("%w: ddr%d", ErrSlotNotFound, slot)
	}

	seconds, ok := durationOf(el, form2)
	if !ok {
		return SlotDuration{}, fmt.Errorf("%w: ddr%d has no duration", ErrSlotNotFound, slot)
	}

	return SlotDuration{Seconds: seconds, FPS: framerateOf(el)}, nil
}

// ParseSlotStatuses extracts the reported state of every slot present in a
// status document.
func ParseSlotStatuses(data []byte) (map[int]SlotStatus, error) {
	root, err := parseDocument(data)
	if err != nil {
		return nil, err
	}

	statuses := make(map[int]SlotStatus)
	for slot := 1; slot <= SlotCount; slot++ {
		el, _ := slotNode(root, slot)
		if el == nil {
			continue
		}
		statuses[slot] = SlotStatus{
			Duration:  el.attr("file_duration", "duration"),
			Elapsed:   el.attr("clip_seconds_elapsed"),
			Remaining: el.attr("clip_seconds_remaining"),
			Framerate: el.attr("clip_framerate"),
			Playing:   el.attr("playing") == "true",
			Filename:  el.attr("filename", "clip_name"),
		}
	}
	return statuses, nil
}

// ParseTally extracts program/preview membership from a tally document.
// Attribute names vary by device model, so both known spellings of each
// flag are honored.
func ParseTally(data []byte) (*TallyStatus, error) {
	root, err := parseDocument(data)
	if err != nil {
		return nil, err
	}

	tally := &TallyStatus{
		Program: []string{},
		Preview: []string{},
	}
	walkNodes(root, func(n *xmlNode) {
		name := n.XMLName.Local
		if name == "" {
			name = n.attr("name")
		}
		if n.attr("on_pgm") == "true" || n.attr("program") == "true" {
			tally.Program = append(tally.Program, name)
		}
		if n.attr("on_pvw") == "true" || n.attr("preview") == "true" {
			tally.Preview = append(tally.Preview, name)
		}
	})
	return tally, nil
}
