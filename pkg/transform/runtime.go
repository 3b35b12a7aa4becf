package transform

import (
	"sort"
	"strconv"
	"strings"

	"github.com/oneconcern/podbundle/pkg/model"
)

// definition of a module in the bundle
type definition struct {
	id   int
	code string
	deps map[string]int
}

const (
	runtimePrologue = `(function (modules, entries) {
  var cache = {};
  function load(id) {
    if (cache[id]) return cache[id].exports;
    var definition = modules[id];
    if (!definition) throw new Error("Cannot find module " + id);
    var module = cache[id] = { exports: {} };
    definition[0].call(module.exports, function (request) {
      var dep = definition[1][request];
      if (dep === undefined) throw new Error("Cannot find module '" + request + "'");
      return load(dep);
    }, module, module.exports);
    return module.exports;
  }
  for (var i = 0; i < entries.length; i++) load(entries[i]);
})({
`
	moduleHeader = `[function (require, module, exports) {
`
)

// assemble wraps module definitions in the module runtime.
//
// Modules are executed at most once: entries run in order, other modules on their first require.
func assemble(definitions []definition, entries []int) (string, error) {
	var b strings.Builder
	b.WriteString(runtimePrologue)

	for i, def := range definitions {
		deps, err := encodeDeps(def.deps)
		if err != nil {
			return "", err
		}
		b.WriteString(strconv.Itoa(def.id))
		b.WriteString(": ")
		b.WriteString(moduleHeader)
		b.WriteString(def.code)
		if !strings.HasSuffix(def.code, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString("}, ")
		b.WriteString(deps)
		b.WriteString("]")
		if i < len(definitions)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}

	b.WriteString("}, [")
	for i, entry := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(entry))
	}
	b.WriteString("]);\n")
	return b.String(), nil
}

// encodeDeps renders a dependency map as a JavaScript object literal with sorted keys
func encodeDeps(deps map[string]int) (string, error) {
	if len(deps) == 0 {
		return "{}", nil
	}
	requests := make([]string, 0, len(deps))
	for request := range deps {
		requests = append(requests, request)
	}
	sort.Strings(requests)

	var b strings.Builder
	b.WriteByte('{')
	for i, request := range requests {
		key, err := model.JSON.Marshal(request)
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.Write(key)
		b.WriteString(": ")
		b.WriteString(strconv.Itoa(deps[request]))
	}
	b.WriteByte('}')
	return b.String(), nil
}
