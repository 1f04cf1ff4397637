package object

import "testing"

func TestGetWalksParentChain(t *testing.T) {
	root := NewRootEnvironment()
	root.Set("x", &Integer{Value: 1})
	child := NewEnclosedEnvironment(root)

	v, ok := child.Get("x")
	if !ok {
		t.Fatalf("expected child to see root binding")
	}
	if v.(*Integer).Value != 1 {
		t.Fatalf("wrong value")
	}
}

func TestSetShadowsInCurrentScopeOnly(t *testing.T) {
	root := NewRootEnvironment()
	root.Set("x", &Integer{Value: 1})
	child := NewEnclosedEnvironment(root)
	child.Set("x", &Integer{Value: 2})

	cv, _ := child.Get("x")
	rv, _ := root.Get("x")
	if cv.(*Integer).Value != 2 || rv.(*Integer).Value != 1 {
		t.Fatalf("child Set leaked into parent scope")
	}
}

func TestAssignUpdatesWhereDefined(t *testing.T) {
	root := NewRootEnvironment()
	root.Set("x", &Integer{Value: 1})
	child := NewEnclosedEnvironment(root)

	if !child.Assign("x", &Integer{Value: 42}) {
		t.Fatalf("expected assign to find x in an ancestor scope")
	}
	rv, _ := root.Get("x")
	if rv.(*Integer).Value != 42 {
		t.Fatalf("assign did not update the defining scope")
	}
	if child.Assign("never_defined", &Integer{Value: 1}) {
		t.Fatalf("assign to an undeclared name should fail")
	}
}

func TestLockUnlockDropLifecycle(t *testing.T) {
	before := LiveEnvironmentCount()

	root := NewRootEnvironment()
	child := NewEnclosedEnvironment(root)
	child.Lock()

	if LiveEnvironmentCount() != before+2 {
		t.Fatalf("expected two new live environments, got delta %d", LiveEnvironmentCount()-before)
	}

	child.Unlock() // count reaches 0, should self-drop
	if LiveEnvironmentCount() != before+1 {
		t.Fatalf("expected child to have dropped, delta=%d", LiveEnvironmentCount()-before)
	}

	root.Teardown()
	if LiveEnvironmentCount() != before {
		t.Fatalf("expected teardown to bring live count back to baseline, delta=%d", LiveEnvironmentCount()-before)
	}
}

func TestDropIsIdempotent(t *testing.T) {
	root := NewRootEnvironment()
	child := NewEnclosedEnvironment(root)
	child.Lock()
	child.Unlock()
	child.Drop() // already dropped, must not panic or double-decrement
	child.Drop()
	root.Teardown()
}

func TestLockedChildSurvivesParentDrop(t *testing.T) {
	// A closure captured the child environment (locked it) but the
	// enclosing call frame (root) tears down first; the child must
	// still be alive until its own lock reaches zero.
	before := LiveEnvironmentCount()
	root := NewRootEnvironment()
	child := NewEnclosedEnvironment(root)
	child.Lock() // simulate a closure capturing child

	root.Unlock() // root's own initial lock goes to zero, root drops
	if LiveEnvironmentCount() != before+1 {
		t.Fatalf("expected only root to have dropped while child is still locked, delta=%d", LiveEnvironmentCount()-before)
	}

	child.Unlock()
	if LiveEnvironmentCount() != before {
		t.Fatalf("expected child to drop once its own lock reached zero, delta=%d", LiveEnvironmentCount()-before)
	}
}
