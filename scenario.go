package dronesim

// scenario.go assembles a complete scenario from validated parameters.
// Assembly is a straight-line sequence of stages, each consuming the
// products of the ones before it: nodes, then placement, then the radio
// segment, then attachment, addressing, and finally the traffic plan.

// A Scenario gathers every product of assembly, ready for a driver to run
type Scenario struct {
	Ctx         *SimulationContext
	Prms        ScenarioParams
	Nodes       *NodeSet
	Radio       *RadioStack
	Attachments *AttachmentPlan
	Addresses   *AddressPlan
	Traffic     *FlowPlan
}

// BuildScenario validates the parameters and runs the assembly stages in
// order.  The first failing stage aborts assembly; nothing is torn down
// because nothing has started.
func BuildScenario(ctx *SimulationContext, prms ScenarioParams) (*Scenario, error) {
	err := prms.Validate()
	if err != nil {
		return nil, err
	}
	prms.ConfigureDefaults(ctx.Cfg)

	ns, err := BuildTopology(ctx, prms)
	if err != nil {
		return nil, err
	}

	spec := PlacementSpec{MinDistance: prms.MinDistance, MaxDistance: prms.MaxDistance}
	err = InstallMobility(ctx, ns, spec)
	if err != nil {
		return nil, err
	}

	rs := CreateRadioStack(ctx, ns.Gateway)
	for _, enb := range ns.BaseStations {
		rs.InstallBaseStation(enb)
	}
	for _, ue := range ns.UserDevices {
		rs.InstallUserDevice(ue)
	}

	ap, err := BuildAttachments(ctx, ns, rs)
	if err != nil {
		return nil, err
	}

	adp, err := AssignAddresses(ctx, ns, rs)
	if err != nil {
		return nil, err
	}

	fp, err := BuildTrafficPlan(ctx, ns, adp, &prms)
	if err != nil {
		return nil, err
	}

	scn := &Scenario{
		Ctx:         ctx,
		Prms:        prms,
		Nodes:       ns,
		Radio:       rs,
		Attachments: ap,
		Addresses:   adp,
		Traffic:     fp,
	}
	return scn, nil
}
