package control

import (
	"testing"

	"go.viam.com/test"
)

func TestSeedIsZeroedAndReady(t *testing.T) {
	tr := Seed(5)
	test.That(t, tr.Ready(5), test.ShouldBeTrue)
	test.That(t, tr.Ready(4), test.ShouldBeFalse)
	for _, v := range tr.OA {
		test.That(t, v, test.ShouldEqual, 0.0)
	}
	for _, v := range tr.OD {
		test.That(t, v, test.ShouldEqual, 0.0)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tr := Seed(3)
	clone := tr.Clone()
	clone.OA[0] = 9.9
	test.That(t, tr.OA[0], test.ShouldEqual, 0.0)
	test.That(t, clone.OA[0], test.ShouldEqual, 9.9)
}

func TestZeroValueNotReady(t *testing.T) {
	var tr Trace
	test.That(t, tr.Ready(5), test.ShouldBeFalse)
}
