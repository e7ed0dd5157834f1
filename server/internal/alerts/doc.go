// Package alerts evaluates threshold rules against every assembled cluster
// snapshot and delivers webhook notifications to Teams, Slack or generic
// HTTP targets when a rule fires or resolves.
package alerts
