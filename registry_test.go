package relayfsm_test

import (
	"testing"

	"github.com/librescoot/relayfsm"
	"github.com/librescoot/relayfsm/registry/registrytest"
)

func TestValueRegistryContract(t *testing.T) {
	registrytest.RegistryContractTest(t, func(*testing.T) relayfsm.Registry[registrytest.Sample] {
		return relayfsm.NewRegistry[registrytest.Sample]()
	})
}
