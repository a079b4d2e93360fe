package templates

// turnstile is the smallest useful machine: two states, two events, no
// guards. A good first target for generate and simulate.
var turnstile = Template{
	Name:        "turnstile",
	Description: "Coin-operated turnstile with locked and unlocked arms",
	Source: `// Coins unlock the arm for one rotation; pushing relocks it.
fsm turnstile {
	[*] --> Locked
	state Locked : "arm will not rotate"
	state Unlocked : "arm rotates once"
	Locked --> Unlocked : coin / thank()
	Locked --> Locked : push / refuse()
	Unlocked --> Locked : push
	Unlocked --> Unlocked : coin / refund()
}
`,
}

// traffic demonstrates entry hooks arming one-shot timers: each phase
// schedules its own advance and hands off when it fires.
var traffic = Template{
	Name:        "traffic",
	Description: "Three-phase traffic light cycled by hold timers",
	Source: `// Each phase arms a hold timer on entry; expiry advances the cycle.
fsm traffic {
	[*] --> Red
	state Red : "stop" {
		entry / start_timer(red_hold)
	}
	state Green : "go" {
		entry / start_timer(green_hold)
	}
	state Yellow : "prepare to stop" {
		entry / start_timer(yellow_hold)
	}
	timer red_hold = 30 -> advance
	timer green_hold = 25 -> advance
	timer yellow_hold = 5 -> advance
	Red --> Green : advance
	Green --> Yellow : advance
	Yellow --> Red : advance
}
`,
}

// door demonstrates guards and choice chaining: an authorized request
// still bounces to the alarm when the bolt is engaged.
var door = Template{
	Name:        "door",
	Description: "Badge-controlled door with a bolt-check choice",
	Source: `// Bind "authorized" and "bolt_engaged" before simulating.
fsm door {
	[*] --> Closed
	state Closed
	state Open
	state Alarmed : "forced entry detected"
	Closed --> Check : open_request [authorized] / log(request)
	Closed --> Alarmed : force
	Open --> Closed : close
	Alarmed --> Closed : reset / log(reset)
	choice Check {
		[bolt_engaged] -> Alarmed / sound(alarm)
		[else] -> Open
	}
}
`,
}

// heartbeat demonstrates a periodic timer: the probe re-posts itself
// while Alive, and a one-shot grace window decides Suspect's fate.
var heartbeat = Template{
	Name:        "heartbeat",
	Description: "Liveness monitor with periodic probes and a grace window",
	Source: `// The probe fires every 10 units while Alive; Suspect gets a 30-unit
// grace window before the peer is declared dead.
fsm heartbeat {
	[*] --> Alive
	state Alive : "peer responding" {
		entry / start_timer(probe)
	}
	state Suspect : "missed a beat" {
		entry / start_timer(grace)
	}
	state Dead : "peer unreachable"
	timer probe = 10 -> ping periodic
	timer grace = 30 -> give_up
	Alive --> Alive : ping / send_probe()
	Alive --> Suspect : silence
	Suspect --> Alive : pong / log(recovered)
	Suspect --> Dead : give_up
	Dead --> Alive : restart
}
`,
}
