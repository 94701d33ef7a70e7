package plugins

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xpath"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

// hostAPI is the surface a plugin script sees as the global `tsundoku`
// object: an HTTP client, structured logging, and HTML extraction helpers.
type hostAPI struct {
	vm       *goja.Runtime
	pluginID string
	client   *http.Client
}

func newHostAPI(vm *goja.Runtime, pluginID string) *hostAPI {
	return &hostAPI{
		vm:       vm,
		pluginID: pluginID,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *hostAPI) inject() {
	vm := h.vm

	root := vm.NewObject()
	root.Set("fetch", h.fetch)
	root.Set("log", h.log)

	utils := vm.NewObject()
	utils.Set("parseHTML", h.parseHTML)
	utils.Set("xpath", h.xpathQuery)
	root.Set("utils", utils)

	vm.Set("tsundoku", root)
}

func (h *hostAPI) setConfig(config map[string]any) {
	root := h.vm.Get("tsundoku").ToObject(h.vm)
	root.Set("config", h.vm.ToValue(config))
}

func (h *hostAPI) log(call goja.FunctionCall) goja.Value {
	parts := make([]string, 0, len(call.Arguments))
	for _, arg := range call.Arguments {
		parts = append(parts, arg.String())
	}
	log.Printf("plugin %s: %s", h.pluginID, strings.Join(parts, " "))
	return goja.Undefined()
}

// fetch performs an HTTP GET and returns {status, statusText, data, text()}.
// The response body is offered as parsed JSON when it parses, raw text
// otherwise.
func (h *hostAPI) fetch(call goja.FunctionCall) goja.Value {
	vm := h.vm
	url := call.Argument(0).String()
	if url == "" {
		vm.Interrupt("fetch error: URL is required")
		return goja.Undefined()
	}

	var options map[string]any
	if len(call.Arguments) > 1 && !goja.IsUndefined(call.Argument(1)) {
		options, _ = call.Argument(1).ToObject(vm).Export().(map[string]any)
	}

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		vm.Interrupt(fmt.Sprintf("fetch error: failed to create request for '%s': %v", url, err))
		return goja.Undefined()
	}
	if headers, ok := options["headers"].(map[string]any); ok {
		for k, v := range headers {
			req.Header.Set(k, fmt.Sprint(v))
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		vm.Interrupt(fmt.Sprintf("fetch error: request to '%s' failed: %v", url, err))
		return goja.Undefined()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		vm.Interrupt(fmt.Sprintf("fetch error: failed to read response from '%s': %v", url, err))
		return goja.Undefined()
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		data = string(body)
	}

	respObj := vm.NewObject()
	respObj.Set("status", resp.StatusCode)
	respObj.Set("statusText", resp.Status)
	respObj.Set("data", vm.ToValue(data))
	respObj.Set("text", func() string { return string(body) })
	return respObj
}

// parseHTML parses an HTML string and returns a document object exposing
// querySelector/querySelectorAll backed by goquery.
func (h *hostAPI) parseHTML(call goja.FunctionCall) goja.Value {
	vm := h.vm
	htmlStr := call.Argument(0).String()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		vm.Interrupt(fmt.Sprintf("parseHTML error: %v", err))
		return goja.Undefined()
	}

	docObj := vm.NewObject()
	docObj.Set("querySelector", func(selector string) goja.Value {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			return vm.ToValue(nil)
		}
		return h.elementToJS(sel)
	})
	docObj.Set("querySelectorAll", func(selector string) goja.Value {
		return h.selectionToJS(doc.Find(selector))
	})
	docObj.Set("_html", htmlStr)
	return docObj
}

func (h *hostAPI) elementToJS(selection *goquery.Selection) goja.Value {
	vm := h.vm
	element := vm.NewObject()

	element.Set("textContent", selection.Text())
	innerHTML, _ := selection.Html()
	element.Set("innerHTML", innerHTML)

	element.Set("getAttribute", func(name string) goja.Value {
		val, exists := selection.Attr(name)
		if !exists {
			return goja.Undefined()
		}
		return vm.ToValue(val)
	})
	element.Set("querySelector", func(selector string) goja.Value {
		child := selection.Find(selector).First()
		if child.Length() == 0 {
			return vm.ToValue(nil)
		}
		return h.elementToJS(child)
	})
	element.Set("querySelectorAll", func(selector string) goja.Value {
		return h.selectionToJS(selection.Find(selector))
	})

	return element
}

func (h *hostAPI) selectionToJS(selection *goquery.Selection) goja.Value {
	var elements []goja.Value
	selection.Each(func(i int, s *goquery.Selection) {
		elements = append(elements, h.elementToJS(s))
	})

	arr := h.vm.NewArray(len(elements))
	for i, elem := range elements {
		arr.Set(fmt.Sprintf("%d", i), elem)
	}
	return arr
}

// xpathQuery evaluates an XPath expression against an HTML string or a
// document produced by parseHTML, returning the matched nodes as element
// objects.
func (h *hostAPI) xpathQuery(call goja.FunctionCall) goja.Value {
	vm := h.vm

	var htmlStr string
	docArg := call.Argument(0)
	if obj := docArg.ToObject(vm); obj != nil {
		if stored := obj.Get("_html"); stored != nil && !goja.IsUndefined(stored) {
			htmlStr = stored.String()
		}
	}
	if htmlStr == "" {
		htmlStr = docArg.String()
	}
	expr := call.Argument(1).String()
	if htmlStr == "" || expr == "" {
		vm.Interrupt("xpath error: requires a document or HTML string and an XPath expression")
		return goja.Undefined()
	}

	root, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		vm.Interrupt(fmt.Sprintf("xpath error: failed to parse HTML: %v", err))
		return goja.Undefined()
	}
	compiled, err := xpath.Compile(expr)
	if err != nil {
		vm.Interrupt(fmt.Sprintf("xpath error: invalid expression %q: %v", expr, err))
		return goja.Undefined()
	}

	iter := compiled.Select(&htmlNavigator{node: root})
	var nodes []*html.Node
	for iter.MoveNext() {
		if nav, ok := iter.Current().(*htmlNavigator); ok {
			nodes = append(nodes, nav.node)
		}
	}

	results := make([]goja.Value, 0, len(nodes))
	for _, node := range nodes {
		sel := goquery.NewDocumentFromNode(node).Selection
		results = append(results, h.elementToJS(sel))
	}
	arr := vm.NewArray(len(results))
	for i, elem := range results {
		arr.Set(fmt.Sprintf("%d", i), elem)
	}
	return arr
}
