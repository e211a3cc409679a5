package controls

// ResetSensor is the old name of ResetPose.
//
// Deprecated: use ResetPose.
func (c *Controls) ResetSensor() {
	c.logger().Println("WARNING: controls: ResetSensor() is now ResetPose()")
	c.ResetPose()
}

// ZeroSensor is the old name of ResetPose.
//
// Deprecated: use ResetPose.
func (c *Controls) ZeroSensor() {
	c.logger().Println("WARNING: controls: ZeroSensor() is now ResetPose()")
	c.ResetPose()
}
