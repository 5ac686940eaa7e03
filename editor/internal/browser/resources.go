package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockKinds maps configuration names to CDP resource types.
var blockKinds = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
}

// blockSet resolves configured kinds. Unknown names are returned separately
// so the caller can log them.
func blockSet(kinds []string) (map[proto.NetworkResourceType]bool, []string) {
	set := make(map[proto.NetworkResourceType]bool, len(kinds))
	var unknown []string
	for _, k := range kinds {
		t, ok := blockKinds[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		set[t] = true
	}
	return set, unknown
}

// blockResources fails matching requests on page. The peer never needs
// them; blocking heavy media keeps long edit sessions light.
func blockResources(page *rod.Page, set map[proto.NetworkResourceType]bool) *rod.HijackRouter {
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if set[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}
