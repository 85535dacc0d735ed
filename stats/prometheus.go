/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package stats

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vaporio/ptpslave/session"
)

// Collector adapts a session.Table to prometheus.Collector, so the
// external health-monitor collaborator can scrape per-session offset,
// delay and counters the same way it would scrape any other service
// on this appliance.
type Collector struct {
	table *session.Table

	offset *prometheus.Desc
	delay  *prometheus.Desc
	synced *prometheus.Desc
	syncRx *prometheus.Desc
	reqTx  *prometheus.Desc
	respRx *prometheus.Desc
}

// NewCollector returns a Collector reading live state from t on every
// scrape; it does not cache.
func NewCollector(t *session.Table) *Collector {
	labels := []string{"port", "vlan"}
	return &Collector{
		table:  t,
		offset: prometheus.NewDesc("ptpslave_offset_ns", "Offset from master in nanoseconds", labels, nil),
		delay:  prometheus.NewDesc("ptpslave_delay_ns", "One-way delay in nanoseconds", labels, nil),
		synced: prometheus.NewDesc("ptpslave_synced", "1 if the session is currently synced", labels, nil),
		syncRx: prometheus.NewDesc("ptpslave_sync_rx_total", "Sync messages received", labels, nil),
		reqTx:  prometheus.NewDesc("ptpslave_delay_req_tx_total", "Delay_Req messages sent", labels, nil),
		respRx: prometheus.NewDesc("ptpslave_delay_resp_rx_total", "Delay_Resp messages received", labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.offset
	ch <- c.delay
	ch <- c.synced
	ch <- c.syncRx
	ch <- c.reqTx
	ch <- c.respRx
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range Snapshot(c.table) {
		port := strconv.Itoa(s.PortID)
		vlan := strconv.Itoa(int(s.VLANID))

		ch <- prometheus.MustNewConstMetric(c.offset, prometheus.GaugeValue, float64(s.OffsetNs), port, vlan)
		ch <- prometheus.MustNewConstMetric(c.delay, prometheus.GaugeValue, float64(s.DelayNs), port, vlan)
		synced := 0.0
		if s.IsSynced {
			synced = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.synced, prometheus.GaugeValue, synced, port, vlan)
		ch <- prometheus.MustNewConstMetric(c.syncRx, prometheus.CounterValue, float64(s.SyncRx), port, vlan)
		ch <- prometheus.MustNewConstMetric(c.reqTx, prometheus.CounterValue, float64(s.DelayReqTx), port, vlan)
		ch <- prometheus.MustNewConstMetric(c.respRx, prometheus.CounterValue, float64(s.DelayRespRx), port, vlan)
	}
}
