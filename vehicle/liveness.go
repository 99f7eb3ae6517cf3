package vehicle

// IsRemoteResponding is true while vehicle heartbeats keep arriving within
// the configured remote timeout.
func (v *Vehicle) IsRemoteResponding() bool {
	if v.lastHeartbeat.IsZero() {
		return false
	}
	return v.now().Sub(v.lastHeartbeat) < v.cfg.RemoteTimeout
}

func (v *Vehicle) updateLiveness() {
	responding := v.IsRemoteResponding()
	if responding == v.responding {
		return
	}
	v.responding = responding
	if responding {
		v.log.WithField("system_id", v.targetSystem).Info("Vehicle responding")
	} else {
		v.log.WithField("last_heartbeat", v.lastHeartbeat).Warn("Vehicle not responding")
	}
}
