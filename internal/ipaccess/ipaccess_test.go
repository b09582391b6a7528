package ipaccess

import "testing"

func TestControllerEnforcesLimit(t *testing.T) {
	c := New(2, "")

	if !c.Add("1.2.3.4") {
		t.Fatal("first connection should be allowed")
	}
	if !c.Add("1.2.3.4") {
		t.Fatal("second connection should be allowed")
	}
	if c.Add("1.2.3.4") {
		t.Fatal("third connection should be rejected")
	}

	c.Remove("1.2.3.4")
	if !c.Add("1.2.3.4") {
		t.Fatal("connection should be allowed again after Remove")
	}
}

func TestControllerZeroLimitDisablesCap(t *testing.T) {
	c := New(0, "")

	for i := 0; i < 100; i++ {
		if !c.Add("1.2.3.4") {
			t.Fatal("limit 0 should never reject")
		}
	}
}

func TestControllerTracksIPsIndependently(t *testing.T) {
	c := New(1, "")

	if !c.Add("1.1.1.1") || !c.Add("2.2.2.2") {
		t.Fatal("distinct IPs should each get their own slot")
	}
	if c.Add("1.1.1.1") {
		t.Fatal("second connection from the same IP should be rejected")
	}
}

func TestAllowedByRangeListEmptyAllowsAll(t *testing.T) {
	if !AllowedByRangeList("IPACCESS_TEST_UNSET_VAR", "8.8.8.8") {
		t.Fatal("unset whitelist env var should allow by default")
	}
}
