package qrauth

import "github.com/thecodeprism/qrauth/internal/metrics"

// MetricID identifies a counter or histogram in the in-process metrics
// system.
type MetricID = metrics.MetricID

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot = metrics.Snapshot

// Metric identifiers exposed through [Engine.MetricsSnapshot].
const (
	MetricScanAuthenticated    = metrics.MetricScanAuthenticated
	MetricScanRejectedDisabled = metrics.MetricScanRejectedDisabled
	MetricScanInvalidPayload   = metrics.MetricScanInvalidPayload
	MetricScanIgnored          = metrics.MetricScanIgnored
	MetricScanDebounced        = metrics.MetricScanDebounced
	MetricPresenceDenied       = metrics.MetricPresenceDenied
	MetricElevationPrompted    = metrics.MetricElevationPrompted
	MetricElevationApproved    = metrics.MetricElevationApproved
	MetricElevationDenied      = metrics.MetricElevationDenied
	MetricLinkIssued           = metrics.MetricLinkIssued
	MetricExpiryAdjusted       = metrics.MetricExpiryAdjusted
	MetricRecordTerminated     = metrics.MetricRecordTerminated
	MetricRemoteToggled        = metrics.MetricRemoteToggled
	MetricLoginSuccess         = metrics.MetricLoginSuccess
	MetricLoginFailure         = metrics.MetricLoginFailure
	MetricScanLatency          = metrics.MetricScanLatency
)
