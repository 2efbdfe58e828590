package probe

// PowerShell commands run on the Hyper-V host. Their output is the
// "Name : Value" list format parsed by the blocks package.
const (
	ServiceCommand = `powershell "Get-CimInstance win32_service -filter \"name='vmms'\"| Select Name,Displayname,StartMode,State,Startname,Status"`

	FeatureCommand = `powershell "Get-WindowsOptionalFeature -Online -FeatureName Microsoft-Hyper-V"`

	// one property list per VM followed by one SwitchName line per adapter
	InventoryCommand = "powershell \"$vmname = (Get-VM | select name | ft -HideTableHeaders -autosize) | Out-String; " +
		"$linearray = $vmname.Split(\\\"`n\\\"); " +
		"foreach ($i in $linearray) {if ($i.Length -gt 1){" +
		"get-vm $i.trim() | select Name, State, CPUUsage, MemoryAssigned, MemoryDemand, Uptime, Status, Version;" +
		"Get-VM $i.trim() | Select-Object -ExpandProperty NetworkAdapters | Select-Object SwitchName}}\""
)
