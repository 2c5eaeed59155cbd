package worktree

import "encoding/json"

// stampInheritedFrom sets "inherited_from" on a JSON object document so a
// copied security profile is recognized as a pass-through of the parent
// project's rules rather than something to re-analyze. Non-object
// documents are returned unchanged.
func stampInheritedFrom(data []byte, fromPath string) []byte {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return data
	}
	obj["inherited_from"] = fromPath
	out, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return data
	}
	return out
}
