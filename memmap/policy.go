package memmap

// Policy controls how Insert treats existing entries that intersect the inserted range
type Policy uint32

const (
	// PolicyMustBeUsableOrReclaimable fails with a ConflictError unless every byte of the target
	// range is currently Usable or BootloaderReclaimable
	PolicyMustBeUsableOrReclaimable Policy = iota
	// PolicyForce overwrites whatever currently occupies the target range
	PolicyForce
	// PolicySimulateOnly performs the PolicyMustBeUsableOrReclaimable check without mutating the map
	PolicySimulateOnly
)

var policyMapping = map[Policy]string{
	PolicyMustBeUsableOrReclaimable: "PolicyMustBeUsableOrReclaimable",
	PolicyForce:                     "PolicyForce",
	PolicySimulateOnly:              "PolicySimulateOnly",
}

func (p Policy) String() string {
	return policyMapping[p]
}
