// Command conveyor runs the video pipeline stages from cron and offers
// queue and configuration utilities for operators.
package main
