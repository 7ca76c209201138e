package object

// ListTraversable is the extra surface a list_head/hlist_node-behavior
// object exposes beyond the base Object interface: spec §4.D.5's
// list_of_type.
type ListTraversable interface {
	Object
	// ListOfType walks the list starting from this link, materializing
	// containerType at each hop by subtracting offsetof(containerType,
	// memberName) from the link address. Forward controls link direction;
	// an hlist_node-behavior object only has a forward pointer and returns
	// nil when forward is false. HeadSentinel seeds this link's own address into the
	// seen-set so it is never yielded and a fully-circular list
	// terminates instead of looping forever back to the head.
	ListOfType(containerType, memberName string, forward, headSentinel bool) []Object
}

// listHead is the behavior class for doubly-linked link nodes (Windows
// _LIST_ENTRY with Flink/Blink, Linux list_head with next/prev). Per spec
// §4.D.5, fwdField/backField name the pointer fields on the *link* struct
// itself that chain to the next/previous link.
type listHead struct {
	*View
	fwdField, backField string
}

// NewListHeadBehaviorFactory builds a BehaviorFactory for a doubly-linked
// list-link type, parametrized by its forward/backward field names so the
// same behavior serves both the Windows _LIST_ENTRY (Flink/Blink) and the
// Linux list_head (next/prev) layouts spec §4.D.5 names.
func NewListHeadBehaviorFactory(fwdField, backField string) BehaviorFactory {
	return func(v *View) Object {
		return &listHead{View: v, fwdField: fwdField, backField: backField}
	}
}

func (l *listHead) ListOfType(containerType, memberName string, forward, headSentinel bool) []Object {
	field := l.fwdField
	if !forward {
		field = l.backField
	}
	if field == "" {
		return nil
	}
	return walkList(l.View, field, containerType, memberName, headSentinel)
}

// hlistNode is the behavior class for Linux's singly-linked hash-chain
// links (module list, open-file hash buckets): one forward pointer, no
// back pointer. Recovered from original_source's linux.py per SPEC_FULL's
// "Linux-side object engine detail" addition to spec §4.D.5.
type hlistNode struct {
	*View
	nextField string
}

// NewHlistNodeBehaviorFactory builds a BehaviorFactory for an hlist_node,
// parametrized by its single forward-pointer field name.
func NewHlistNodeBehaviorFactory(nextField string) BehaviorFactory {
	return func(v *View) Object {
		return &hlistNode{View: v, nextField: nextField}
	}
}

func (h *hlistNode) ListOfType(containerType, memberName string, forward, headSentinel bool) []Object {
	if !forward {
		return nil // hlist_node has no back pointer
	}
	return walkList(h.View, h.nextField, containerType, memberName, headSentinel)
}

// walkList is the shared cycle-safe traversal core: repeatedly dereference
// linkField, subtract offsetof(containerType, memberName), and materialize
// the container, stopping on an invalid link or a revisited address.
func walkList(start *View, linkField, containerType, memberName string, headSentinel bool) []Object {
	resolver := start.Resolver()
	containerLayout, ok := resolver.TypeByName(containerType)
	if !ok {
		return nil
	}
	memberOffset, ok := containerLayout.OffsetOf(memberName)
	if !ok {
		return nil
	}

	seen := make(map[uint64]bool)
	startAddr := start.Address()
	if headSentinel {
		seen[startAddr] = true
	}

	var out []Object
	cur := Object(start)
	for {
		next := cur.Field(linkField).Deref()
		if next.IsNone() {
			break
		}
		nextAddr := next.Address()
		if seen[nextAddr] {
			break
		}
		seen[nextAddr] = true

		if uint64(memberOffset) > nextAddr {
			break // underflow: corrupt link, can't compute container address
		}
		containerAddr := nextAddr - uint64(memberOffset)
		container := Materialize(resolver, containerType, containerAddr, next.AddressSpace(), next, false)
		out = append(out, container)

		cur = next
	}
	return out
}
